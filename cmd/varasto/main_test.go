package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yairfalse/varasto/types"
)

func TestHandleHealth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	handleHealth(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestPrintResourcesRejectsUnknownFormat(t *testing.T) {
	err := printResources([]types.Resource{}, "csv")
	assert.Error(t, err)
}

func TestPrintResourcesTableEmpty(t *testing.T) {
	err := printResources(nil, "table")
	assert.NoError(t, err)
}
