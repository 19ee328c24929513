// Package credentials loads the operator's local AWS access keys.
//
// The keys live in a YAML file that is excluded from version control. The
// file is read once at startup and the values are never modified.
package credentials

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	deployerrors "github.com/savaki/grader-deployer/internal/errors"
	"gopkg.in/yaml.v3"
)

// Credentials holds the values from the local credential file
type Credentials struct {
	AccessKeyID     string `yaml:"aws_access_key_id"`     // AWS access key id
	SecretAccessKey string `yaml:"aws_secret_access_key"` // AWS secret access key
	MobiusDirectory string `yaml:"mobius_directory"`      // Local checkout of the modeller project
}

// Guidance returns the message shown to the operator when the credential
// file at path is missing or incomplete
func Guidance(path string) string {
	return fmt.Sprintf(`AWS credentials not found in %s

To create it:
  1. run: grader-deployer init
     (or copy the template below into %s)
  2. fill in your own access key id, secret access key and local mobius directory

  aws_access_key_id: ""
  aws_secret_access_key: ""
  mobius_directory: ""

DO NOT commit %s. It is listed in .gitignore; AWS detects keys pushed to
public sites like GitHub and may ask you to delete the key and your account.`, path, path, path)
}

// Load reads credentials from path. A missing file or a file with blank keys
// returns an error wrapping ErrCredentialsMissing.
func Load(path string) (Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Credentials{}, fmt.Errorf("%w: %s", deployerrors.ErrCredentialsMissing, path)
		}
		return Credentials{}, fmt.Errorf("failed to read credentials %s: %w", path, err)
	}

	var creds Credentials
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return Credentials{}, fmt.Errorf("failed to parse credentials %s: %w", path, err)
	}

	creds.AccessKeyID = strings.TrimSpace(creds.AccessKeyID)
	creds.SecretAccessKey = strings.TrimSpace(creds.SecretAccessKey)
	if creds.AccessKeyID == "" || creds.SecretAccessKey == "" {
		return Credentials{}, fmt.Errorf("%w: %s has blank access keys", deployerrors.ErrCredentialsMissing, path)
	}

	return creds, nil
}

// WriteTemplate writes an empty credential file to path. An existing file is
// left untouched and reported as an error.
func WriteTemplate(path, mobiusDirectory string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("credentials file %s already exists", path)
	}

	data, err := yaml.Marshal(Credentials{MobiusDirectory: mobiusDirectory})
	if err != nil {
		return fmt.Errorf("failed to marshal credentials template: %w", err)
	}

	header := "# Local AWS credentials for grader-deployer.\n" +
		"# DO NOT commit this file; it is listed in .gitignore.\n"

	if err := os.WriteFile(path, append([]byte(header), data...), 0600); err != nil {
		return fmt.Errorf("failed to write credentials template: %w", err)
	}

	return nil
}
