package reportservice

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/airenas/wardrep/internal/pkg/api"
	"github.com/airenas/wardrep/internal/pkg/forms"
	"github.com/airenas/wardrep/internal/pkg/persistence"
	"github.com/airenas/wardrep/internal/pkg/status"
	"github.com/airenas/wardrep/internal/pkg/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testForm(st status.Form) *persistence.Form {
	return &persistence.Form{ID: 3, Name: "monthly", Version: 1, Status: st,
		Definition: json.RawMessage(`{"fields":[]}`), CreatedBy: 10, Created: time.Now(), Updated: time.Now()}
}

func TestCreateForm(t *testing.T) {
	initTest(t)
	var got *forms.Input
	formsM.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		got = args.Get(1).(*forms.Input)
	}).Return(testForm(status.FormDraft), nil)
	req := jsonRequest(http.MethodPost, "/forms", `{"name":"monthly","definition":{"fields":[]}}`)
	resp := test.Code(t, tEcho, req, http.StatusCreated)
	require.NotNil(t, got)
	assert.Equal(t, "monthly", got.Name)
	assert.Equal(t, int64(10), got.UserID)
	assert.JSONEq(t, `{"fields":[]}`, string(got.Definition))
	res := test.Decode[map[string]interface{}](t, resp.Result())
	assert.Equal(t, "DRAFT", res["status"])
	assert.Equal(t, 1.0, res["version"])
}

func TestCreateForm_Validation(t *testing.T) {
	initTest(t)
	req := jsonRequest(http.MethodPost, "/forms", `{"definition":{}}`)
	resp := test.Code(t, tEcho, req, http.StatusBadRequest)
	assert.Contains(t, resp.Body.String(), `"name":"required"`)
	formsM.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestUpdateForm(t *testing.T) {
	initTest(t)
	formsM.On("Update", mock.Anything, int64(3), mock.Anything).Return(testForm(status.FormDraft), nil)
	req := jsonRequest(http.MethodPut, "/forms/3", `{"name":"monthly","definition":{"fields":[]}}`)
	test.Code(t, tEcho, req, http.StatusOK)
}

func TestUpdateForm_NotEditable(t *testing.T) {
	initTest(t)
	formsM.On("Update", mock.Anything, int64(3), mock.Anything).
		Return(nil, api.NewError(api.KindInvalidTransition, "not a draft"))
	req := jsonRequest(http.MethodPut, "/forms/3", `{"name":"monthly","definition":{"fields":[]}}`)
	test.Code(t, tEcho, req, http.StatusConflict)
}

func TestDeployForm(t *testing.T) {
	initTest(t)
	formsM.On("Deploy", mock.Anything, int64(3)).Return(testForm(status.FormDeployed), nil)
	req := wardRequest(http.MethodPost, "/forms/3/deploy", nil)
	resp := test.Code(t, tEcho, req, http.StatusOK)
	res := test.Decode[map[string]interface{}](t, resp.Result())
	assert.Equal(t, "DEPLOYED", res["status"])
}

func TestDeployForm_Fail(t *testing.T) {
	initTest(t)
	formsM.On("Deploy", mock.Anything, int64(3)).Return(nil, api.NewError(api.KindInvalidTransition, "olia"))
	req := wardRequest(http.MethodPost, "/forms/3/deploy", nil)
	test.Code(t, tEcho, req, http.StatusConflict)
}

func TestArchiveForm(t *testing.T) {
	initTest(t)
	formsM.On("Archive", mock.Anything, int64(3)).Return(testForm(status.FormArchived), nil)
	req := wardRequest(http.MethodPost, "/forms/3/archive", nil)
	test.Code(t, tEcho, req, http.StatusOK)
}

func TestGetForm(t *testing.T) {
	initTest(t)
	formsM.On("Get", mock.Anything, int64(3)).Return(nil, api.NewError(api.KindNotFound, "olia"))
	req := wardRequest(http.MethodGet, "/forms/3", nil)
	test.Code(t, tEcho, req, http.StatusNotFound)
}

func TestActiveForm(t *testing.T) {
	initTest(t)
	formsM.On("GetActive", mock.Anything).Return(testForm(status.FormDeployed), nil)
	req := wardRequest(http.MethodGet, "/forms/active", nil)
	resp := test.Code(t, tEcho, req, http.StatusOK)
	res := test.Decode[map[string]interface{}](t, resp.Result())
	assert.Equal(t, 3.0, res["id"])
}

func TestActiveForm_None(t *testing.T) {
	initTest(t)
	formsM.On("GetActive", mock.Anything).Return(nil, nil)
	req := wardRequest(http.MethodGet, "/forms/active", nil)
	test.Code(t, tEcho, req, http.StatusNoContent)
}

func TestListForms(t *testing.T) {
	initTest(t)
	formsM.On("List", mock.Anything).Return([]*persistence.Form{testForm(status.FormDraft),
		testForm(status.FormArchived)}, nil)
	req := wardRequest(http.MethodGet, "/forms", nil)
	resp := test.Code(t, tEcho, req, http.StatusOK)
	res := test.Decode[[]map[string]interface{}](t, resp.Result())
	assert.Equal(t, 2, len(res))
}
