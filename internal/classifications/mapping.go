package classifications

import (
	"net/url"
	"strconv"

	"github.com/BerndBr/taskana/pkg/query"
	"github.com/BerndBr/taskana/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "classifications", "c").
	Project("id", "ID").
	Project("key", "Key").
	Project("parent_id", "ParentID").
	Project("parent_key", "ParentKey").
	Project("category", "Category").
	Project("type", "Type").
	Project("domain", "Domain").
	Project("is_valid_in_domain", "IsValidInDomain").
	Project("created", "Created").
	Project("modified", "Modified").
	Project("name", "Name").
	Project("description", "Description").
	Project("priority", "Priority").
	Project("service_level", "ServiceLevel").
	Project("application_entry_point", "ApplicationEntryPoint").
	Project("custom_1", "Custom1").
	Project("custom_2", "Custom2").
	Project("custom_3", "Custom3").
	Project("custom_4", "Custom4").
	Project("custom_5", "Custom5").
	Project("custom_6", "Custom6").
	Project("custom_7", "Custom7").
	Project("custom_8", "Custom8")

var defaultSort = []query.SortField{
	{Field: "Domain"},
	{Field: "Key"},
}

// Filters contains optional filtering criteria for classification queries.
// Nil fields are ignored. All fields use exact matching.
type Filters struct {
	Domain          *string `json:"domain,omitempty"`
	Key             *string `json:"key,omitempty"`
	Category        *string `json:"category,omitempty"`
	Type            *string `json:"type,omitempty"`
	ParentID        *string `json:"parent_id,omitempty"`
	IsValidInDomain *bool   `json:"is_valid_in_domain,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Domain", f.Domain).
		WhereEquals("Key", f.Key).
		WhereEquals("Category", f.Category).
		WhereEquals("Type", f.Type).
		WhereEquals("ParentID", f.ParentID).
		WhereEquals("IsValidInDomain", f.IsValidInDomain)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if d := values.Get("domain"); d != "" {
		f.Domain = &d
	}

	if k := values.Get("key"); k != "" {
		f.Key = &k
	}

	if c := values.Get("category"); c != "" {
		f.Category = &c
	}

	if t := values.Get("type"); t != "" {
		f.Type = &t
	}

	if p := values.Get("parent_id"); p != "" {
		f.ParentID = &p
	}

	if v := values.Get("valid_in_domain"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			f.IsValidInDomain = &b
		}
	}

	return f
}

func scanClassification(s repository.Scanner) (Classification, error) {
	var c Classification
	err := s.Scan(
		&c.ID,
		&c.Key,
		&c.ParentID,
		&c.ParentKey,
		&c.Category,
		&c.Type,
		&c.Domain,
		&c.IsValidInDomain,
		&c.Created,
		&c.Modified,
		&c.Name,
		&c.Description,
		&c.Priority,
		&c.ServiceLevel,
		&c.ApplicationEntryPoint,
		&c.Custom1,
		&c.Custom2,
		&c.Custom3,
		&c.Custom4,
		&c.Custom5,
		&c.Custom6,
		&c.Custom7,
		&c.Custom8,
	)
	return c, err
}

func upsertArgs(c Classification) []any {
	return []any{
		c.ID,
		c.Key,
		c.ParentID,
		c.ParentKey,
		c.Category,
		c.Type,
		c.Domain,
		c.IsValidInDomain,
		c.Created,
		c.Modified,
		c.Name,
		c.Description,
		c.Priority,
		c.ServiceLevel,
		c.ApplicationEntryPoint,
		c.Custom1,
		c.Custom2,
		c.Custom3,
		c.Custom4,
		c.Custom5,
		c.Custom6,
		c.Custom7,
		c.Custom8,
	}
}
