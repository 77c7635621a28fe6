package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Credential keys read from the credentials file.
const (
	KeyAccessKeyID     = "AWS_ACCESS_KEY_ID"
	KeySecretAccessKey = "AWS_SECRET_ACCESS_KEY"
)

// Credentials is an explicit AWS key pair handed to the storage client.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
}

// IsZero reports whether no key pair is set.
func (c Credentials) IsZero() bool {
	return c.AccessKeyID == "" && c.SecretAccessKey == ""
}

// String redacts the secret.
func (c Credentials) String() string {
	if c.IsZero() {
		return "Credentials{}"
	}
	id := c.AccessKeyID
	if len(id) > 4 {
		id = id[:4] + "****"
	}
	return fmt.Sprintf("Credentials{AccessKeyID: %s, SecretAccessKey: ****}", id)
}

// LoadCredentials reads the key pair from a dotenv-style file. INI section
// headers and ';' comments are ignored, so a dl.cfg with an [AWS] section
// parses as well. The process environment is never modified.
func LoadCredentials(path string) (Credentials, error) {
	f, err := os.Open(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to open credentials file: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "[") || strings.HasPrefix(line, ";") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return Credentials{}, fmt.Errorf("failed to read credentials file: %w", err)
	}

	values, err := godotenv.Unmarshal(b.String())
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to parse credentials file: %w", err)
	}

	creds := Credentials{
		AccessKeyID:     values[KeyAccessKeyID],
		SecretAccessKey: values[KeySecretAccessKey],
	}
	if creds.AccessKeyID == "" || creds.SecretAccessKey == "" {
		return Credentials{}, fmt.Errorf("credentials file %s must set %s and %s", path, KeyAccessKeyID, KeySecretAccessKey)
	}
	return creds, nil
}
