package naming

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// GraphNode is one entry of a workflow graph: the node's registered type
// and its literal input values. Linked inputs appear as JSON arrays.
type GraphNode struct {
	ClassType string         `json:"class_type"`
	Inputs    map[string]any `json:"inputs"`
}

// Graph maps node IDs to graph entries.
type Graph map[string]GraphNode

// ParseGraph decodes a workflow graph from prompt JSON. Entries that are
// not objects are skipped. Numbers are kept as json.Number so large seeds
// survive verbatim.
func ParseGraph(data []byte) (Graph, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing workflow graph: %w", err)
	}
	graph := make(Graph, len(raw))
	for id, msg := range raw {
		var node GraphNode
		dec := json.NewDecoder(bytes.NewReader(msg))
		dec.UseNumber()
		if err := dec.Decode(&node); err != nil {
			continue
		}
		graph[id] = node
	}
	return graph, nil
}

// %NodeName.field% where the node name may contain spaces but not '%' or
// '.', and the field may contain anything but '%'.
var fieldTokenPattern = regexp.MustCompile(`%([^%.]+)\.([^%]+)%`)

// ProcessNodeFieldTokens replaces %NodeName.field% patterns with the value
// of that input on the first graph node whose type matches. Node IDs are
// visited in sorted order so the match is stable. Tokens that resolve to a
// linked input, or that match no node or field, are left unchanged.
func ProcessNodeFieldTokens(text string, graph Graph) string {
	if text == "" || len(graph) == 0 || !strings.Contains(text, "%") {
		return text
	}

	ids := make([]string, 0, len(graph))
	for id := range graph {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return fieldTokenPattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := fieldTokenPattern.FindStringSubmatch(match)
		nodeName, fieldName := groups[1], groups[2]

		for _, id := range ids {
			node := graph[id]
			if node.ClassType != nodeName {
				continue
			}
			value, ok := node.Inputs[fieldName]
			if !ok {
				continue
			}
			if formatted, ok := formatTokenValue(value); ok {
				return formatted
			}
			// Linked input: nothing literal to substitute.
			return match
		}
		return match
	})
}

func formatTokenValue(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}
