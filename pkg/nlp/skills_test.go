package nlp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalSkill(t *testing.T) {
	assert.Equal(t, "go", CanonicalSkill("Golang"))
	assert.Equal(t, "postgres", CanonicalSkill(" PostgreSQL "))
	assert.Equal(t, "kubernetes operators", CanonicalSkill("k8s operators"))
	assert.Equal(t, "ci cd", CanonicalSkill("CI/CD"))
	assert.Equal(t, "", CanonicalSkill("  ,  "))
}

func TestDedupeSkills(t *testing.T) {
	got := DedupeSkills([]string{"Go", "golang", " Docker ", "", "docker", "K8s", "Kubernetes"})
	assert.Equal(t, []string{"Go", "Docker", "K8s"}, got)
}

func TestSubtract(t *testing.T) {
	got := Subtract([]string{"Kubernetes", "Rust", "PostgreSQL"}, []string{"k8s", "postgres"})
	assert.Equal(t, []string{"Rust"}, got)
}
