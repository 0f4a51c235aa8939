package oci

import (
	"testing"

	"github.com/yairfalse/varasto/types"
)

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		status    string
		lifecycle string
		want      string
	}{
		{"ENABLED", "ACTIVE", "ENABLED"},
		{"", "ACTIVE", "ACTIVE"},
		{"", "", ""},
	}

	for _, tt := range tests {
		if got := normalizeStatus(tt.status, tt.lifecycle); got != tt.want {
			t.Errorf("normalizeStatus(%q, %q) = %q, want %q", tt.status, tt.lifecycle, got, tt.want)
		}
	}
}

func TestMergeTags(t *testing.T) {
	r := types.Resource{ID: "ocid1.database.oc1..x"}
	mergeTags(&r, map[string]string{"team": "dba", "env": "prod"})

	if r.Attr("tag.team") != "dba" {
		t.Errorf("tag.team = %q", r.Attr("tag.team"))
	}
	if r.Attr("tag.env") != "prod" {
		t.Errorf("tag.env = %q", r.Attr("tag.env"))
	}

	// Empty tags must not allocate a bag
	var empty types.Resource
	mergeTags(&empty, nil)
	if empty.Attributes != nil {
		t.Error("nil tags should leave attributes nil")
	}
}

func TestSetAttrIfSet(t *testing.T) {
	var r types.Resource
	setAttrIfSet(&r, "database_type", "")
	if r.Attributes != nil {
		t.Error("empty value should not be stored")
	}

	setAttrIfSet(&r, "database_type", "EXTERNAL-PDB")
	if r.Attr("database_type") != "EXTERNAL-PDB" {
		t.Errorf("database_type = %q", r.Attr("database_type"))
	}
}
