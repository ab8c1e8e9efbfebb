package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/taskdeck/core/internal/adapters/repository"
	"github.com/taskdeck/core/internal/application/services"
	"github.com/taskdeck/core/internal/domain/entities"
	"github.com/taskdeck/core/internal/infrastructure/logger"
	"github.com/taskdeck/core/internal/ports"
)

type testValidator struct {
	validator *validator.Validate
}

func (v *testValidator) Validate(i interface{}) error {
	return v.validator.Struct(i)
}

func newTestHandler() (*TaskHandler, *services.TaskService) {
	svc := services.NewTaskService(repository.NewMemoryTaskRepository(), logger.NewNop())
	return NewTaskHandler(svc, logger.NewNop()), svc
}

func newTestContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = &testValidator{validator: validator.New()}

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var envelope map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return envelope
}

func seedTask(t *testing.T, svc *services.TaskService, title string) *entities.Task {
	t.Helper()
	task, err := svc.CreateTask(context.Background(), ports.CreateTaskRequest{Title: title})
	if err != nil {
		t.Fatalf("seed task: %v", err)
	}
	return task
}

func TestCreateTaskHandler(t *testing.T) {
	h, _ := newTestHandler()
	c, rec := newTestContext(http.MethodPost, "/api/tasks", `{"title":"Buy milk","priority":"High"}`)

	if err := h.CreateTask(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}

	envelope := decodeEnvelope(t, rec)
	if envelope["success"] != true {
		t.Error("expected success true")
	}
	if envelope["message"] != "Task created successfully" {
		t.Errorf("unexpected message: %v", envelope["message"])
	}

	data, ok := envelope["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected data object, got %T", envelope["data"])
	}
	if data["title"] != "Buy milk" {
		t.Errorf("unexpected title: %v", data["title"])
	}
	if data["priority"] != "High" {
		t.Errorf("unexpected priority: %v", data["priority"])
	}
	if data["id"] == "" || data["id"] == nil {
		t.Error("expected an id in the response")
	}
}

func TestCreateTaskHandlerMalformedBody(t *testing.T) {
	h, _ := newTestHandler()
	c, _ := newTestContext(http.MethodPost, "/api/tasks", `{"title":`)

	err := h.CreateTask(c)
	if err == nil || err.Error() != "Invalid request format" {
		t.Errorf("expected bind error, got %v", err)
	}
	if !entities.IsValidation(err) {
		t.Error("expected a validation error")
	}
}

func TestCreateTaskHandlerMissingTitle(t *testing.T) {
	h, _ := newTestHandler()
	c, _ := newTestContext(http.MethodPost, "/api/tasks", `{"description":"no title"}`)

	err := h.CreateTask(c)
	if err == nil || err.Error() != "Title is required" {
		t.Errorf("expected title error, got %v", err)
	}
}

func TestListTasksHandler(t *testing.T) {
	h, svc := newTestHandler()
	seedTask(t, svc, "First")
	seedTask(t, svc, "Second")

	c, rec := newTestContext(http.MethodGet, "/api/tasks", "")
	if err := h.ListTasks(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	envelope := decodeEnvelope(t, rec)
	if envelope["message"] != "Found 2 tasks" {
		t.Errorf("unexpected message: %v", envelope["message"])
	}
	data, ok := envelope["data"].([]interface{})
	if !ok {
		t.Fatalf("expected data array, got %T", envelope["data"])
	}
	if len(data) != 2 {
		t.Errorf("expected 2 tasks, got %d", len(data))
	}
}

func TestListTasksHandlerCompletedFilter(t *testing.T) {
	h, svc := newTestHandler()
	done := seedTask(t, svc, "Done already")
	seedTask(t, svc, "Still open")
	if _, err := svc.ToggleTask(context.Background(), done.ID); err != nil {
		t.Fatalf("toggle task: %v", err)
	}

	c, rec := newTestContext(http.MethodGet, "/api/tasks?completed=true", "")
	if err := h.ListTasks(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	envelope := decodeEnvelope(t, rec)
	data := envelope["data"].([]interface{})
	if len(data) != 1 {
		t.Fatalf("expected 1 completed task, got %d", len(data))
	}
	task := data[0].(map[string]interface{})
	if task["title"] != "Done already" {
		t.Errorf("unexpected task: %v", task["title"])
	}
}

// An empty value still counts as a filter: "?completed=" means completed=false,
// only a missing parameter leaves the listing unconstrained.
func TestListTasksHandlerEmptyCompletedParam(t *testing.T) {
	h, svc := newTestHandler()
	done := seedTask(t, svc, "Done already")
	seedTask(t, svc, "Still open")
	if _, err := svc.ToggleTask(context.Background(), done.ID); err != nil {
		t.Fatalf("toggle task: %v", err)
	}

	c, rec := newTestContext(http.MethodGet, "/api/tasks?completed=", "")
	if err := h.ListTasks(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	envelope := decodeEnvelope(t, rec)
	data := envelope["data"].([]interface{})
	if len(data) != 1 {
		t.Fatalf("expected only the incomplete task, got %d", len(data))
	}
	task := data[0].(map[string]interface{})
	if task["title"] != "Still open" {
		t.Errorf("unexpected task: %v", task["title"])
	}
}

func TestGetTaskHandlerNotFound(t *testing.T) {
	h, _ := newTestHandler()
	c, _ := newTestContext(http.MethodGet, "/api/tasks/missing", "")
	c.SetParamNames("id")
	c.SetParamValues("missing")

	err := h.GetTask(c)
	if !errors.Is(err, entities.ErrTaskNotFound) {
		t.Errorf("expected not-found, got %v", err)
	}
}

func TestUpdateTaskHandler(t *testing.T) {
	h, svc := newTestHandler()
	task := seedTask(t, svc, "Original")

	c, rec := newTestContext(http.MethodPut, "/api/tasks/"+task.ID, `{"title":"Renamed"}`)
	c.SetParamNames("id")
	c.SetParamValues(task.ID)

	if err := h.UpdateTask(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	envelope := decodeEnvelope(t, rec)
	if envelope["message"] != "Task updated successfully" {
		t.Errorf("unexpected message: %v", envelope["message"])
	}
	data := envelope["data"].(map[string]interface{})
	if data["title"] != "Renamed" {
		t.Errorf("unexpected title: %v", data["title"])
	}
}

func TestToggleTaskHandlerMessages(t *testing.T) {
	h, svc := newTestHandler()
	task := seedTask(t, svc, "Flip me")

	c, rec := newTestContext(http.MethodPatch, "/api/tasks/"+task.ID+"/toggle", "")
	c.SetParamNames("id")
	c.SetParamValues(task.ID)
	if err := h.ToggleTask(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if envelope := decodeEnvelope(t, rec); envelope["message"] != "Task marked as completed" {
		t.Errorf("unexpected message: %v", envelope["message"])
	}

	c, rec = newTestContext(http.MethodPatch, "/api/tasks/"+task.ID+"/toggle", "")
	c.SetParamNames("id")
	c.SetParamValues(task.ID)
	if err := h.ToggleTask(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if envelope := decodeEnvelope(t, rec); envelope["message"] != "Task marked as incomplete" {
		t.Errorf("unexpected message: %v", envelope["message"])
	}
}

func TestDeleteTaskHandler(t *testing.T) {
	h, svc := newTestHandler()
	task := seedTask(t, svc, "Doomed")

	c, rec := newTestContext(http.MethodDelete, "/api/tasks/"+task.ID, "")
	c.SetParamNames("id")
	c.SetParamValues(task.ID)

	if err := h.DeleteTask(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	envelope := decodeEnvelope(t, rec)
	if envelope["message"] != "Task deleted successfully" {
		t.Errorf("unexpected message: %v", envelope["message"])
	}
	// Data is always present in the envelope, null for deletes.
	if data, present := envelope["data"]; !present || data != nil {
		t.Errorf("expected null data, got %v (present=%v)", data, present)
	}
}

func TestBulkOperationsHandlerDelete(t *testing.T) {
	h, svc := newTestHandler()
	a := seedTask(t, svc, "a")
	b := seedTask(t, svc, "b")

	body := `{"operation":"delete","taskIds":["` + a.ID + `","` + b.ID + `"]}`
	c, rec := newTestContext(http.MethodPost, "/api/tasks/bulk", body)

	if err := h.BulkOperations(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	envelope := decodeEnvelope(t, rec)
	if envelope["message"] != "Tasks deleted successfully" {
		t.Errorf("unexpected message: %v", envelope["message"])
	}
	data := envelope["data"].(map[string]interface{})
	if data["deletedCount"] != float64(2) {
		t.Errorf("expected deletedCount 2, got %v", data["deletedCount"])
	}
	if _, present := data["modifiedCount"]; present {
		t.Error("delete result must not carry modifiedCount")
	}
}

func TestBulkOperationsHandlerMissingOperation(t *testing.T) {
	h, _ := newTestHandler()
	c, _ := newTestContext(http.MethodPost, "/api/tasks/bulk", `{"taskIds":[]}`)

	err := h.BulkOperations(c)
	if err == nil || err.Error() != "Invalid bulk operation parameters" {
		t.Errorf("expected parameter error, got %v", err)
	}
}

func TestGetStatsHandler(t *testing.T) {
	h, svc := newTestHandler()
	done := seedTask(t, svc, "a")
	seedTask(t, svc, "b")
	if _, err := svc.ToggleTask(context.Background(), done.ID); err != nil {
		t.Fatalf("toggle task: %v", err)
	}

	c, rec := newTestContext(http.MethodGet, "/api/tasks/stats", "")
	if err := h.GetStats(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	envelope := decodeEnvelope(t, rec)
	if envelope["message"] != "Task statistics retrieved successfully" {
		t.Errorf("unexpected message: %v", envelope["message"])
	}
	data := envelope["data"].(map[string]interface{})
	if data["total"] != float64(2) || data["completed"] != float64(1) {
		t.Errorf("unexpected stats: %v", data)
	}
	if data["completionRate"] != float64(50) {
		t.Errorf("expected completion rate 50, got %v", data["completionRate"])
	}
}
