// Package classifications implements the classification domain for Taskana.
// It provides the stored classification model, the import/merge engine that
// applies batches of classification definitions atomically, and the data
// access and HTTP surface for querying, exporting, and importing them.
package classifications

import (
	"strings"
	"time"
)

// Default attribute values applied to classifications created by an import.
const (
	TypeTask        = "TASK"
	TypeDocument    = "DOCUMENT"
	DefaultCategory = "EXTERNAL"
)

// Classification is a stored classification. ID is always set and
// (Key, Domain) is unique across the store. ParentID and ParentKey
// reference the resolved parent and are blank for a root classification.
type Classification struct {
	ID                    string    `json:"classification_id"`
	Key                   string    `json:"key"`
	ParentID              string    `json:"parent_id"`
	ParentKey             string    `json:"parent_key"`
	Category              string    `json:"category"`
	Type                  string    `json:"type"`
	Domain                string    `json:"domain"`
	IsValidInDomain       bool      `json:"is_valid_in_domain"`
	Created               time.Time `json:"created"`
	Modified              time.Time `json:"modified"`
	Name                  string    `json:"name"`
	Description           string    `json:"description"`
	Priority              int       `json:"priority"`
	ServiceLevel          string    `json:"service_level"`
	ApplicationEntryPoint string    `json:"application_entry_point"`
	Custom1               string    `json:"custom_1"`
	Custom2               string    `json:"custom_2"`
	Custom3               string    `json:"custom_3"`
	Custom4               string    `json:"custom_4"`
	Custom5               string    `json:"custom_5"`
	Custom6               string    `json:"custom_6"`
	Custom7               string    `json:"custom_7"`
	Custom8               string    `json:"custom_8"`
}

// Record is one entry of an import batch. ID is optional: when it does not
// match a stored classification it acts as a batch-local alias that other
// records may use as their ParentID. Optional pointer fields keep the stored
// value when nil.
type Record struct {
	ID                    string     `json:"classification_id,omitempty"`
	Key                   string     `json:"key"`
	Domain                string     `json:"domain"`
	ParentID              string     `json:"parent_id,omitempty"`
	ParentKey             string     `json:"parent_key,omitempty"`
	Category              string     `json:"category,omitempty"`
	Type                  string     `json:"type,omitempty"`
	IsValidInDomain       *bool      `json:"is_valid_in_domain,omitempty"`
	Created               *time.Time `json:"created,omitempty"`
	Modified              *time.Time `json:"modified,omitempty"`
	Name                  string     `json:"name,omitempty"`
	Description           string     `json:"description,omitempty"`
	Priority              int        `json:"priority,omitempty"`
	ServiceLevel          string     `json:"service_level,omitempty"`
	ApplicationEntryPoint string     `json:"application_entry_point,omitempty"`
	Custom1               string     `json:"custom_1,omitempty"`
	Custom2               string     `json:"custom_2,omitempty"`
	Custom3               string     `json:"custom_3,omitempty"`
	Custom4               string     `json:"custom_4,omitempty"`
	Custom5               string     `json:"custom_5,omitempty"`
	Custom6               string     `json:"custom_6,omitempty"`
	Custom7               string     `json:"custom_7,omitempty"`
	Custom8               string     `json:"custom_8,omitempty"`
}

// Definitions is the import document: a batch of records.
type Definitions struct {
	Classifications []Record `json:"classifications"`
}

// Export is the export document for one or all domains.
type Export struct {
	Classifications []Classification `json:"classifications"`
}

// ToRecord converts a stored classification into an import record so an
// export can be imported again unchanged.
func (c Classification) ToRecord() Record {
	valid := c.IsValidInDomain
	created := c.Created
	modified := c.Modified
	return Record{
		ID:                    c.ID,
		Key:                   c.Key,
		Domain:                c.Domain,
		ParentID:              c.ParentID,
		ParentKey:             c.ParentKey,
		Category:              c.Category,
		Type:                  c.Type,
		IsValidInDomain:       &valid,
		Created:               &created,
		Modified:              &modified,
		Name:                  c.Name,
		Description:           c.Description,
		Priority:              c.Priority,
		ServiceLevel:          c.ServiceLevel,
		ApplicationEntryPoint: c.ApplicationEntryPoint,
		Custom1:               c.Custom1,
		Custom2:               c.Custom2,
		Custom3:               c.Custom3,
		Custom4:               c.Custom4,
		Custom5:               c.Custom5,
		Custom6:               c.Custom6,
		Custom7:               c.Custom7,
		Custom8:               c.Custom8,
	}
}

// Records converts an export into an import batch.
func (e Export) Records() []Record {
	out := make([]Record, len(e.Classifications))
	for i, c := range e.Classifications {
		out[i] = c.ToRecord()
	}
	return out
}

// Normalize returns a copy of batch with surrounding whitespace removed
// from the identifying fields, so " K" and "K" name the same record and a
// blank identifier counts as absent.
func Normalize(batch []Record) []Record {
	out := make([]Record, len(batch))
	for i, r := range batch {
		r.ID = strings.TrimSpace(r.ID)
		r.Key = strings.TrimSpace(r.Key)
		r.Domain = strings.TrimSpace(r.Domain)
		r.ParentID = strings.TrimSpace(r.ParentID)
		r.ParentKey = strings.TrimSpace(r.ParentKey)
		r.Type = strings.TrimSpace(r.Type)
		r.Category = strings.TrimSpace(r.Category)
		out[i] = r
	}
	return out
}

func (r Record) ref() string {
	return r.Domain + "/" + r.Key
}
