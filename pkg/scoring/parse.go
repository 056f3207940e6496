package scoring

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// modelOutput is the only shape accepted from the model.
type modelOutput struct {
	Score     *float64 `json:"score"`
	Breakdown *struct {
		Skills         *float64 `json:"skills"`
		Experience     *float64 `json:"experience"`
		Qualifications *float64 `json:"qualifications"`
		Projects       *float64 `json:"projects"`
	} `json:"breakdown"`
	MatchedSkills *[]string `json:"matched_skills"`
	MissingSkills *[]string `json:"missing_skills"`
	Reasoning     *string   `json:"reasoning"`
}

var errSchema = errors.New("model output does not match schema")

// parseOutput decodes raw as is and, if that fails, once more after repair.
func parseOutput(raw string) (modelOutput, error) {
	out, err := decodeStrict(raw)
	if err == nil {
		return out, nil
	}
	repaired := repair(raw)
	if repaired == raw {
		return modelOutput{}, err
	}
	return decodeStrict(repaired)
}

func decodeStrict(s string) (modelOutput, error) {
	var out modelOutput
	dec := json.NewDecoder(strings.NewReader(s))
	if err := dec.Decode(&out); err != nil {
		return modelOutput{}, fmt.Errorf("%w: %v", errSchema, err)
	}
	if dec.More() {
		return modelOutput{}, fmt.Errorf("%w: trailing data", errSchema)
	}
	if err := out.validate(); err != nil {
		return modelOutput{}, err
	}
	return out, nil
}

func (o modelOutput) validate() error {
	var missing []string
	if o.Score == nil {
		missing = append(missing, "score")
	}
	if o.Breakdown == nil {
		missing = append(missing, "breakdown")
	} else {
		b := o.Breakdown
		for _, f := range []struct {
			name string
			v    *float64
		}{
			{"breakdown.skills", b.Skills},
			{"breakdown.experience", b.Experience},
			{"breakdown.qualifications", b.Qualifications},
			{"breakdown.projects", b.Projects},
		} {
			if f.v == nil {
				missing = append(missing, f.name)
			}
		}
	}
	if o.MatchedSkills == nil {
		missing = append(missing, "matched_skills")
	}
	if o.MissingSkills == nil {
		missing = append(missing, "missing_skills")
	}
	if o.Reasoning == nil {
		missing = append(missing, "reasoning")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", errSchema, strings.Join(missing, ", "))
	}
	return nil
}

// repair is the single best-effort pass: strip markdown fences, keep the
// outermost object and turn single-quoted pseudo-JSON into JSON.
func repair(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.Contains(s[:nl], "{") {
			s = s[nl+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	if start, end := strings.IndexByte(s, '{'), strings.LastIndexByte(s, '}'); start >= 0 && end > start {
		s = s[start : end+1]
	}
	if !json.Valid([]byte(s)) && !strings.Contains(s, `"`) {
		s = strings.ReplaceAll(s, "'", `"`)
	}
	return s
}
