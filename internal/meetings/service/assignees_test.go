package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestResolveAssignee(t *testing.T) {
	anna := Member{ID: uuid.New(), DisplayName: "Anna de Vries", Email: "anna@agency.test"}
	annaB := Member{ID: uuid.New(), DisplayName: "Anna Bakker", Email: "a.bakker@agency.test"}
	tom := Member{ID: uuid.New(), DisplayName: "Tom  Jansen", Email: "tom@agency.test"}
	members := []Member{anna, annaB, tom}

	tests := []struct {
		name string
		hint string
		want *uuid.UUID
	}{
		{"email", "ANNA@agency.test", &anna.ID},
		{"local part", "a.bakker", &annaB.ID},
		{"mention", "@tom", &tom.ID},
		{"full name", "anna bakker", &annaB.ID},
		{"full name collapses spaces", "tom jansen", &tom.ID},
		{"first name unique", "Tom", &tom.ID},
		{"unknown first name", "Sam", nil},
		{"blank", "  ", nil},
		{"unknown", "the client", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, resolveAssignee(tt.hint, members))
		})
	}
}

func TestResolveAssigneeAmbiguousFirstName(t *testing.T) {
	members := []Member{
		{ID: uuid.New(), DisplayName: "Anna de Vries", Email: "devries@agency.test"},
		{ID: uuid.New(), DisplayName: "Anna Bakker", Email: "bakker@agency.test"},
	}
	require.Nil(t, resolveAssignee("anna", members))
}
