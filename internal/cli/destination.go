// Package cli provides cloud destination flag handling.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mediasink/mediasink/internal/cloud/credentials"
	"github.com/mediasink/mediasink/internal/cloud/providers"
	"github.com/mediasink/mediasink/internal/config"
	"github.com/mediasink/mediasink/internal/logging"
	"github.com/mediasink/mediasink/internal/models"
)

// destinationFlags holds the cloud destination tuple shared by every
// save and load command. Values left blank fall back to the
// [destination] section of the config file.
type destinationFlags struct {
	provider       string
	locator        string
	folderPath     string
	credential     string
	credentialFile string
}

// register adds the destination flags to cmd.
func (f *destinationFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.provider, "provider", "", "Cloud backend ID or display name (e.g. s3, \"Google Drive\")")
	cmd.Flags().StringVar(&f.locator, "locator", "", "Backend-specific destination: bucket, bucket URL, connection string or folder")
	cmd.Flags().StringVar(&f.folderPath, "folder-path", "", "Folder or key prefix under the locator")
	cmd.Flags().StringVar(&f.credential, "credential", "", "Credential for the backend (overrides all other sources)")
	cmd.Flags().StringVar(&f.credentialFile, "credential-file", "", "Path to a file containing the credential")
}

// resolve merges the flags with the config defaults and the environment
// into a Destination. Precedence for the credential: --credential, then
// --credential-file, then the config file, then MEDIASINK_API_KEY_<PROVIDER>
// and MEDIASINK_API_KEY.
func (f *destinationFlags) resolve(cfg *config.Config) (models.Destination, error) {
	dest := models.Destination{
		Provider:   firstNonEmpty(f.provider, cfg.Destination.Provider),
		Locator:    firstNonEmpty(f.locator, cfg.Destination.Locator),
		FolderPath: firstNonEmpty(f.folderPath, cfg.Destination.FolderPath),
	}

	explicit := f.credential
	if explicit == "" && f.credentialFile != "" {
		raw, err := os.ReadFile(f.credentialFile)
		if err != nil {
			return models.Destination{}, fmt.Errorf("failed to read credential file: %w", err)
		}
		explicit = strings.TrimSpace(string(raw))
	}
	if explicit == "" {
		explicit = cfg.Destination.APIKey
	}
	dest.Credential = credentials.Resolve(dest.Provider, explicit)

	GetLogger().Debug().
		Interface("destination", logging.RedactParams(map[string]string{
			"provider":    dest.Provider,
			"locator":     dest.Locator,
			"folder_path": dest.FolderPath,
			"api_key":     dest.Credential,
		})).
		Msg("resolved destination")

	return dest, nil
}

// maybePromptCredential asks on the terminal for a credential when a
// cloud leg resolved without one. Piped runs skip the prompt and fail
// validation instead; FTP authenticates inside its locator URL and is
// never asked.
func maybePromptCredential(dest *models.Destination) error {
	if dest.Credential != "" || dest.Provider == "" {
		return nil
	}
	// Unknown providers keep the richer validation error.
	id, err := providers.CanonicalID(dest.Provider)
	if err != nil || id == "ftp" {
		return nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil
	}

	secret, err := promptSecret(fmt.Sprintf("Credential for %s: ", dest.Provider))
	if err != nil {
		return fmt.Errorf("failed to read credential: %w", err)
	}
	dest.Credential = secret
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
