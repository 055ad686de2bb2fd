package rmf

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testServer(handler http.HandlerFunc) (*httptest.Server, *Client) {
	srv := httptest.NewServer(handler)
	client := NewClient(srv.URL, 5*time.Second)
	return srv, client
}

func TestListTasksRaw_PassesThroughBytes(t *testing.T) {
	const task = `{"booking":{"id":"delivery-1","requester":"stub"},"category":"delivery","status":"queued","custom_field":[1,2,3]}`
	srv, client := testServer(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tasks" {
			t.Errorf("path = %q, want /tasks", r.URL.Path)
		}
		io.WriteString(w, "["+task+"]")
	})
	defer srv.Close()

	tasks, err := client.ListTasksRaw(context.Background())
	if err != nil {
		t.Fatalf("ListTasksRaw: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("len = %d, want 1", len(tasks))
	}
	if string(tasks[0]) != task {
		t.Errorf("task = %s, want %s", tasks[0], task)
	}
}

func TestListTasksRaw_DropsInvalid(t *testing.T) {
	srv, client := testServer(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"booking":{"id":""}},{"booking":{"id":"t1"},"status":"exploded"},{"booking":{"id":"t2"},"status":"underway"}]`)
	})
	defer srv.Close()

	tasks, err := client.ListTasks(context.Background())
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Booking.ID != "t2" {
		t.Errorf("tasks = %+v, want only t2", tasks)
	}
}

func TestListFleets(t *testing.T) {
	srv, client := testServer(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fleets" {
			t.Errorf("path = %q, want /fleets", r.URL.Path)
		}
		io.WriteString(w, `[
			{"name":"tinyRobot","robots":{"tinyRobot1":{"name":"tinyRobot1","status":"idle","battery":0.9}}},
			{"name":"deliveryRobot","robots":{"d1":{"name":"d1","battery":1.7}}}
		]`)
	})
	defer srv.Close()

	fleets, err := client.ListFleets(context.Background())
	if err != nil {
		t.Fatalf("ListFleets: %v", err)
	}
	if len(fleets) != 1 {
		t.Fatalf("len = %d, want 1", len(fleets))
	}
	if fleets[0].Name != "tinyRobot" {
		t.Errorf("Name = %q, want tinyRobot", fleets[0].Name)
	}
	r := fleets[0].Robots["tinyRobot1"]
	if r.Battery == nil || *r.Battery != 0.9 {
		t.Errorf("Battery = %v, want 0.9", r.Battery)
	}
}

func TestListFleets_UpstreamError(t *testing.T) {
	srv, client := testServer(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	defer srv.Close()

	if _, err := client.ListFleetsRaw(context.Background()); err == nil {
		t.Fatal("expected error for HTTP 500")
	}
}

func TestDispatchTask(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	srv, client := testServer(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tasks/dispatch_task" {
			t.Errorf("path = %q, want /tasks/dispatch_task", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["type"] != "dispatch_task_request" {
			t.Errorf("type = %v", body["type"])
		}
		req := body["request"].(map[string]any)
		if req["category"] != "patrol" {
			t.Errorf("category = %v, want patrol", req["category"])
		}
		if req["requester"] != "stub" {
			t.Errorf("requester = %v, want stub", req["requester"])
		}
		if req["labels"] != nil {
			t.Errorf("labels = %v, want null", req["labels"])
		}
		if req["unix_millis_request_time"] != float64(1700000000123) {
			t.Errorf("request time = %v", req["unix_millis_request_time"])
		}
		desc := req["description"].(map[string]any)
		places := desc["places"].([]any)
		if len(places) != 1 || places[0] != "pantry" {
			t.Errorf("places = %v, want [pantry]", places)
		}
		if desc["rounds"] != float64(1) {
			t.Errorf("rounds = %v, want 1", desc["rounds"])
		}
		prio := req["priority"].(map[string]any)
		if prio["type"] != "binary" || prio["value"] != float64(0) {
			t.Errorf("priority = %v", prio)
		}
		io.WriteString(w, `{"success":true,"state":{"booking":{"id":"patrol-1"}}}`)
	})
	defer srv.Close()

	if err := client.DispatchTask(context.Background(), NewDispatchTaskRequest("patrol", "pantry", now)); err != nil {
		t.Fatalf("DispatchTask: %v", err)
	}
}

func TestDispatchTask_EmptyDestination(t *testing.T) {
	called := false
	srv, client := testServer(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	defer srv.Close()

	err := client.DispatchTask(context.Background(), NewDispatchTaskRequest("patrol", "", time.Now()))
	if err == nil {
		t.Fatal("expected error for empty destination")
	}
	if called {
		t.Error("upstream was called for an invalid request")
	}
}

func TestPing(t *testing.T) {
	srv, client := testServer(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/time" {
			t.Errorf("path = %q, want /time", r.URL.Path)
		}
		io.WriteString(w, "1700000000000")
	})
	defer srv.Close()

	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestReconfigure(t *testing.T) {
	client := NewClient("http://old:8000/", time.Second)
	client.Reconfigure("http://new:8000/", 2*time.Second)
	if got := client.BaseURL(); got != "http://new:8000" {
		t.Errorf("BaseURL = %q, want http://new:8000", got)
	}
}
