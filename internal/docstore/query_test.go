package docstore

import (
	"strings"
	"testing"
)

func TestValidateID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"valid_bae", "bae-abc123-def", false},
		{"valid_simple", "section_42", false},
		{"empty", "", true},
		{"injection_quote", `bae-1" } } mutation {`, true},
		{"injection_brace", "bae-1{", true},
		{"whitespace", "bae 1", true},
		{"too_long", strings.Repeat("a", 501), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
		})
	}
}

func TestQueryBuilder_Build(t *testing.T) {
	query, vars := NewQuery(SectionCollection).
		Filter("collection_path", "rpger.dnd.5th_edition.phb.core_rules").
		Filter("category", "combat").
		Fields("_docID", "title").
		OrderBy("start_page", "ASC").
		Limit(10).
		Build()

	if !strings.Contains(query, "query($v0: String, $v1: String)") {
		t.Errorf("missing variable definitions: %s", query)
	}
	if !strings.Contains(query, "collection_path: {_eq: $v0}") {
		t.Errorf("missing first filter: %s", query)
	}
	if !strings.Contains(query, "category: {_eq: $v1}") {
		t.Errorf("missing second filter: %s", query)
	}
	if !strings.Contains(query, "order: {start_page: ASC}") {
		t.Errorf("missing order: %s", query)
	}
	if !strings.Contains(query, "limit: 10") {
		t.Errorf("missing limit: %s", query)
	}
	if !strings.Contains(query, "_docID title") {
		t.Errorf("missing fields: %s", query)
	}
	if vars["v0"] != "rpger.dnd.5th_edition.phb.core_rules" || vars["v1"] != "combat" {
		t.Errorf("unexpected vars: %v", vars)
	}
}

func TestQueryBuilder_FilterLike(t *testing.T) {
	query, vars := NewQuery(SectionCollection).
		FilterLike("text", "saving throw").
		Build()

	if !strings.Contains(query, "text: {_like: $v0}") {
		t.Errorf("missing _like filter: %s", query)
	}
	if vars["v0"] != "%saving throw%" {
		t.Errorf("term not wrapped: %v", vars["v0"])
	}
}

func TestQueryBuilder_InjectionStaysInVariables(t *testing.T) {
	hostile := `x"} } mutation { delete_Section(docID: "bae-1") { _docID } }`
	query, vars := NewQuery(SectionCollection).
		Filter("title", hostile).
		Build()

	if strings.Contains(query, "mutation") {
		t.Errorf("hostile value leaked into query text: %s", query)
	}
	if vars["v0"] != hostile {
		t.Errorf("hostile value not preserved as variable: %v", vars["v0"])
	}
}

func TestQueryBuilder_NoFilters(t *testing.T) {
	query, vars := NewQuery(ImportCollection).Build()
	if strings.HasPrefix(query, "query(") {
		t.Errorf("unexpected variable header for filterless query: %s", query)
	}
	if len(vars) != 0 {
		t.Errorf("unexpected vars: %v", vars)
	}
	if !strings.Contains(query, ImportCollection) {
		t.Errorf("missing collection: %s", query)
	}
}
