package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mediasink/mediasink/internal/cloud/providers"
	"github.com/mediasink/mediasink/internal/models"
)

// ErrNoSaveTarget is returned when a save enables neither local disk
// nor a cloud destination.
var ErrNoSaveTarget = errors.New("enable at least one of 'Save to Cloud' or 'Save to Local'")

var validate = validator.New(validator.WithRequiredStructEnabled())

// destinationRules runs on canonicalized, trimmed copies of the
// destination fields. FTP authenticates through the locator URL (or
// anonymously), so it carries no credential; UploadThing addresses the
// account through the credential alone, so it carries no locator.
type destinationRules struct {
	Provider   string `validate:"required"`
	Locator    string `validate:"required_unless=Provider uploadthing"`
	Credential string `validate:"required_unless=Provider ftp"`
}

// ValidateDestination checks the cloud destination fields a save or
// load needs: a known provider, plus locator and credential wherever
// the provider consumes them.
func ValidateDestination(dest models.Destination) error {
	if strings.TrimSpace(dest.Provider) == "" {
		return errors.New("cloud: 'provider' is required")
	}
	id, err := providers.CanonicalID(dest.Provider)
	if err != nil {
		return err
	}

	rules := destinationRules{
		Provider:   id,
		Locator:    strings.TrimSpace(dest.Locator),
		Credential: strings.TrimSpace(dest.Credential),
	}
	err = validate.Struct(rules)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		switch verrs[0].StructField() {
		case "Locator":
			return errors.New("cloud: 'locator' is required")
		case "Credential":
			return errors.New("cloud: 'credential' is required")
		}
	}
	return fmt.Errorf("invalid destination: %w", err)
}

// ValidateSaveTargets checks the local/cloud switches of a save and,
// when cloud is enabled, the destination itself.
func ValidateSaveTargets(saveLocal, saveCloud bool, dest models.Destination) error {
	if !saveLocal && !saveCloud {
		return ErrNoSaveTarget
	}
	if saveCloud {
		return ValidateDestination(dest)
	}
	return nil
}
