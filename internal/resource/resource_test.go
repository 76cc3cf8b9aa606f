package resource_test

import (
	"errors"
	"testing"

	"github.com/draftdeck/draftdeck/internal/resource"
)

func TestFromIDs(t *testing.T) {
	tests := []struct {
		name                    string
		documentID, teamID, gameID string
		want                    resource.Target
		wantErr                 bool
	}{
		{"document only", "d1", "", "", resource.Target{Kind: resource.KindDocument, ID: "d1"}, false},
		{"team only", "", "t1", "", resource.Target{Kind: resource.KindTeam, ID: "t1"}, false},
		{"game only", "", "", "g1", resource.Target{Kind: resource.KindGame, ID: "g1"}, false},
		{"none set", "", "", "", resource.Target{}, true},
		{"two set", "d1", "t1", "", resource.Target{}, true},
		{"all set", "d1", "t1", "g1", resource.Target{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resource.FromIDs(tt.documentID, tt.teamID, tt.gameID)
			if tt.wantErr {
				if !errors.Is(err, resource.ErrInvalidTarget) {
					t.Fatalf("error = %v, want ErrInvalidTarget", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("FromIDs = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestTarget_Validate(t *testing.T) {
	if err := (resource.Target{Kind: resource.KindGame, ID: "g1"}).Validate(); err != nil {
		t.Errorf("valid target rejected: %v", err)
	}
	if err := (resource.Target{Kind: "folder", ID: "f1"}).Validate(); !errors.Is(err, resource.ErrInvalidTarget) {
		t.Errorf("unknown kind accepted")
	}
	if err := (resource.Target{Kind: resource.KindTeam}).Validate(); !errors.Is(err, resource.ErrInvalidTarget) {
		t.Errorf("empty id accepted")
	}
}

func TestParseKind(t *testing.T) {
	if _, err := resource.ParseKind("workspace"); err == nil {
		t.Error("unknown kind parsed")
	}
	k, err := resource.ParseKind("document")
	if err != nil {
		t.Fatalf("ParseKind(document) error = %v", err)
	}
	if k != resource.KindDocument {
		t.Errorf("ParseKind(document) = %s", k)
	}
}
