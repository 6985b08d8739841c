package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
)

func TestSecretString_Redaction(t *testing.T) {
	secret := SecretString("postgres://user:hunter2@db:5432/app")

	if s := secret.String(); strings.Contains(s, "hunter2") {
		t.Errorf("String() leaked the secret: %q", s)
	}
	if s := fmt.Sprintf("%v", secret); strings.Contains(s, "hunter2") {
		t.Errorf("fmt verb leaked the secret: %q", s)
	}

	data, err := json.Marshal(struct {
		URL SecretString `json:"url"`
	}{URL: secret})
	if err != nil {
		t.Fatalf("marshaling: %v", err)
	}
	if strings.Contains(string(data), "hunter2") {
		t.Errorf("JSON leaked the secret: %s", data)
	}

	if secret.Unmask() != "postgres://user:hunter2@db:5432/app" {
		t.Error("Unmask() must return the raw value")
	}
}
