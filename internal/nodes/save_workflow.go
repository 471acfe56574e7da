package nodes

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mediasink/mediasink/internal/storage"
	"github.com/mediasink/mediasink/internal/util/sanitize"
)

// workflowTimestamp is spliced into workflow filenames before the
// extension when timestamping is on.
const workflowTimestamp = "_20060102_150405"

// SaveWorkflow writes the workflow graph as a pretty-printed JSON document
// and saves it to the configured targets. With appendTimestamp set, names
// picked by the caller (filename or custom name) gain a timestamp before
// the extension; random UUID names never do, they are unique already.
func (r *Runner) SaveWorkflow(ctx context.Context, appendTimestamp bool, opts SaveOptions) (*SaveResult, error) {
	if err := r.validateSave(&opts); err != nil {
		return nil, err
	}

	data, err := workflowDocument(opts)
	if err != nil {
		return nil, err
	}

	subfolder, prefixBase, now := r.resolveNaming(opts)
	name := itemName(opts, prefixBase, ".json", 0, 1, now)
	if appendTimestamp && (opts.Filename != "" || opts.CustomName != "") {
		stem, ext := sanitize.SplitExt(name)
		name = stem + now.Format(workflowTimestamp) + ext
	}

	provider := r.startSave(1, opts)
	return r.saveFiles(ctx, subfolder, []storage.File{{Name: name, Data: data}}, provider, opts)
}

// workflowDocument renders the graph and extra entries as one indented
// JSON document. Raw inputs are decoded first so the whole document is
// re-indented uniformly.
func workflowDocument(opts SaveOptions) ([]byte, error) {
	var graph any
	if len(opts.GraphJSON) > 0 {
		if err := json.Unmarshal(opts.GraphJSON, &graph); err != nil {
			return nil, fmt.Errorf("workflow graph is not valid JSON: %w", err)
		}
	}
	extra := make(map[string]any, len(opts.Extra))
	for k, v := range opts.Extra {
		var x any
		if err := json.Unmarshal(v, &x); err != nil {
			return nil, fmt.Errorf("extra entry %q is not valid JSON: %w", k, err)
		}
		extra[k] = x
	}
	doc := struct {
		Prompt any            `json:"prompt"`
		Extra  map[string]any `json:"extra"`
	}{Prompt: graph, Extra: extra}
	return json.MarshalIndent(doc, "", "  ")
}
