package nlp

import (
	"strings"
)

// aliases сводит синонимы к одной канонической форме.
var aliases = map[string]string{
	"postgresql": "postgres",
	"k8s":        "kubernetes",
	"golang":     "go",
	"js":         "javascript",
	"ts":         "typescript",
	"rest api":   "rest",
	"restful":    "rest",
	"cicd":       "ci cd",
	"node":       "nodejs",
	"node js":    "nodejs",
	"react js":   "react",
	"reactjs":    "react",
}

// CanonicalSkill возвращает нормализованный навык с учётом синонимов.
// Для multi-word навыков синонимы раскрываются по токенам.
func CanonicalSkill(skill string) string {
	base := NormalizeSkill(skill)
	if base == "" {
		return ""
	}
	if c, ok := aliases[base]; ok {
		return c
	}
	parts := strings.Split(base, " ")
	if len(parts) == 1 {
		return base
	}
	for i, p := range parts {
		if c, ok := aliases[p]; ok {
			parts[i] = c
		}
	}
	return strings.Join(parts, " ")
}

// DedupeSkills убирает пустые значения и повторы (с учётом синонимов),
// сохраняя порядок и написание первого вхождения.
func DedupeSkills(skills []string) []string {
	out := make([]string, 0, len(skills))
	seen := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		key := CanonicalSkill(s)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, strings.TrimSpace(s))
	}
	return out
}

// Subtract возвращает навыки из from, которых нет в exclude.
func Subtract(from, exclude []string) []string {
	drop := make(map[string]struct{}, len(exclude))
	for _, s := range exclude {
		drop[CanonicalSkill(s)] = struct{}{}
	}
	out := make([]string, 0, len(from))
	for _, s := range from {
		if _, ok := drop[CanonicalSkill(s)]; !ok {
			out = append(out, s)
		}
	}
	return out
}
