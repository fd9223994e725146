package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"parish-data/internal/repository"
	"parish-data/internal/service"
	"parish-data/internal/store"
)

func setupPeopleHandler(t *testing.T) (*PeopleHandler, *service.FieldDefService) {
	t.Helper()

	logger := zap.NewNop()
	peopleRepo := repository.NewMemoryPeopleRepository()
	defService := service.NewFieldDefService(repository.NewMemoryFieldDefsRepository(), store.NewMemoryKV(), logger)
	personService := service.NewPersonService(peopleRepo, defService, logger)
	noteService := service.NewNoteService(repository.NewMemoryNotesRepository(), peopleRepo, logger)

	return NewPeopleHandler(personService, noteService, logger), defService
}

// decodeResult 解析响应包络
func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) (bool, string, json.RawMessage) {
	t.Helper()

	var envelope struct {
		Success bool            `json:"success"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Success, envelope.Message, envelope.Data
}

func TestPeopleHandler_CreateRequiresStaffRole(t *testing.T) {
	handler, _ := setupPeopleHandler(t)

	body := bytes.NewBufferString(`{"first_name":"John","last_name":"Doe"}`)
	req := httptest.NewRequest(http.MethodPost, "/admin/api/v1/people", body)
	req.Header.Set("X-User-Role", "viewer")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	success, message, _ := decodeResult(t, rec)
	assert.False(t, success)
	assert.Contains(t, message, "permission denied")
}

func TestPeopleHandler_CreateAndList(t *testing.T) {
	handler, _ := setupPeopleHandler(t)

	body := bytes.NewBufferString(`{"first_name":"John","last_name":"Doe","email":"john@example.com"}`)
	req := httptest.NewRequest(http.MethodPost, "/admin/api/v1/people", body)
	req.Header.Set("X-User-Role", "admin")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	success, _, _ := decodeResult(t, rec)
	require.True(t, success)

	req = httptest.NewRequest(http.MethodGet, "/admin/api/v1/people?search=doe", nil)
	rec = httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	success, _, data := decodeResult(t, rec)
	require.True(t, success)

	var listResp struct {
		Total int `json:"total"`
		Items []struct {
			FirstName string `json:"first_name"`
			LastName  string `json:"last_name"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(data, &listResp))
	assert.Equal(t, 1, listResp.Total)
	require.Len(t, listResp.Items, 1)
	assert.Equal(t, "John", listResp.Items[0].FirstName)
	assert.Equal(t, "Doe", listResp.Items[0].LastName)
}

func TestPeopleHandler_CreateValidationError(t *testing.T) {
	handler, _ := setupPeopleHandler(t)

	body := bytes.NewBufferString(`{"last_name":"Doe"}`)
	req := httptest.NewRequest(http.MethodPost, "/admin/api/v1/people", body)
	req.Header.Set("X-User-Role", "admin")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	// 错误统一走200 + error包络
	require.Equal(t, http.StatusOK, rec.Code)
	success, message, _ := decodeResult(t, rec)
	assert.False(t, success)
	assert.Contains(t, message, "first_name")
}

func TestPeopleHandler_FormSchemaForNewPerson(t *testing.T) {
	handler, defService := setupPeopleHandler(t)

	_, err := defService.CreateFieldDef(context.Background(), service.CreateFieldDefRequest{
		Label: "Date of Birth",
		Type:  "date",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/admin/api/v1/people/new/form-schema", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	success, _, data := decodeResult(t, rec)
	require.True(t, success)

	var schemaResp struct {
		Controls []struct {
			Key     string `json:"key"`
			Control string `json:"control"`
			Value   any    `json:"value"`
		} `json:"controls"`
	}
	require.NoError(t, json.Unmarshal(data, &schemaResp))
	require.Len(t, schemaResp.Controls, 1)
	assert.Equal(t, "date_of_birth", schemaResp.Controls[0].Key)
	assert.Equal(t, "date_picker", schemaResp.Controls[0].Control)
	assert.Nil(t, schemaResp.Controls[0].Value)
}

func TestPeopleHandler_UnknownRouteReturns404(t *testing.T) {
	handler, _ := setupPeopleHandler(t)

	req := httptest.NewRequest(http.MethodDelete, "/admin/api/v1/people/p-1", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
