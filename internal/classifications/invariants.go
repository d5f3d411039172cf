package classifications

import (
	"fmt"
	"slices"
	"time"
)

// Rules configures the attribute checks applied to every imported record.
type Rules struct {
	AllowedTypes    []string
	DefaultType     string
	DefaultCategory string
}

// DefaultRules allows TASK and DOCUMENT classifications and creates TASK
// classifications in the EXTERNAL category when a record leaves them blank.
func DefaultRules() Rules {
	return Rules{
		AllowedTypes:    []string{TypeTask, TypeDocument},
		DefaultType:     TypeTask,
		DefaultCategory: DefaultCategory,
	}
}

// check validates rec against the stored classification it was matched to.
// A nil existing marks a new classification.
func (r Rules) check(rec Record, existing *Classification) error {
	if existing != nil && (existing.Key != rec.Key || existing.Domain != rec.Domain) {
		return &ValidationError{
			Reason: fmt.Sprintf("classification id %s belongs to %s/%s", existing.ID, existing.Domain, existing.Key),
			Key:    rec.Key,
			Domain: rec.Domain,
		}
	}

	if rec.Type != "" && len(r.AllowedTypes) > 0 && !slices.Contains(r.AllowedTypes, rec.Type) {
		return &ValidationError{
			Reason: fmt.Sprintf("unknown classification type %s", rec.Type),
			Key:    rec.Key,
			Domain: rec.Domain,
		}
	}

	if existing != nil && rec.Type != "" && rec.Type != existing.Type {
		return &ValidationError{
			Reason: fmt.Sprintf("type change forbidden: %s to %s", existing.Type, rec.Type),
			Key:    rec.Key,
			Domain: rec.Domain,
		}
	}

	return nil
}

// apply produces the classification to persist for rec. Attributes the
// import carries replace stored ones; type, created, and optional fields
// left nil keep their stored values.
func (r Rules) apply(rec Record, existing *Classification, id string, now time.Time) Classification {
	var c Classification
	if existing != nil {
		c = *existing
	} else {
		c = Classification{
			Type:            r.DefaultType,
			Category:        r.DefaultCategory,
			IsValidInDomain: true,
			Created:         now,
		}
		if rec.Created != nil {
			c.Created = rec.Created.UTC()
		}
	}

	c.ID = id
	c.Key = rec.Key
	c.Domain = rec.Domain
	if rec.Type != "" {
		c.Type = rec.Type
	}
	if rec.Category != "" {
		c.Category = rec.Category
	}
	if rec.IsValidInDomain != nil {
		c.IsValidInDomain = *rec.IsValidInDomain
	}
	c.Modified = now
	c.Name = rec.Name
	c.Description = rec.Description
	c.Priority = rec.Priority
	c.ServiceLevel = rec.ServiceLevel
	c.ApplicationEntryPoint = rec.ApplicationEntryPoint
	c.Custom1 = rec.Custom1
	c.Custom2 = rec.Custom2
	c.Custom3 = rec.Custom3
	c.Custom4 = rec.Custom4
	c.Custom5 = rec.Custom5
	c.Custom6 = rec.Custom6
	c.Custom7 = rec.Custom7
	c.Custom8 = rec.Custom8
	return c
}
