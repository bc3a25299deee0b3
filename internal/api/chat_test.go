package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/talkdb/talkdb/internal/agent"
	"github.com/talkdb/talkdb/internal/config"
)

func TestCreateSessionReturns201(t *testing.T) {
	cfg := testConfig(t, nil)
	gateway := newTestGateway(t, func(context.Context, string) (agent.Response, error) {
		return agent.Response{Output: "ok"}, nil
	})

	rr := httptest.NewRecorder()
	NewHandler(cfg, Dependencies{Gateway: gateway}).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/sessions", nil))
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
	}
	id, _ := decodeBody(t, rr.Body.Bytes())["session_id"].(string)
	if id == "" {
		t.Fatalf("body = %s", rr.Body.String())
	}
	if _, err := gateway.Transcript(id); err != nil {
		t.Fatalf("Transcript() error = %v", err)
	}
}

func TestChatEndpointRecordsTurns(t *testing.T) {
	cfg := testConfig(t, nil)
	var requests []string
	gateway := newTestGateway(t, func(_ context.Context, instruction string) (agent.Response, error) {
		requests = append(requests, instruction)
		return agent.Response{
			Output: "42 beds",
			Steps:  []agent.Step{{Tool: "sql_db_query", Input: "SELECT SUM(TotalBeds) FROM Hospitals", Output: "42"}},
		}, nil
	})
	session := gateway.NewSession()
	h := NewHandler(cfg, Dependencies{Gateway: gateway})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(`{"session_id":"`+session.ID+`","message":"How many beds are there?"}`)))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr.Body.Bytes())
	if body["answer"] != "42 beds" || body["session_id"] != session.ID {
		t.Fatalf("body = %#v", body)
	}
	if _, ok := body["steps"]; ok {
		t.Fatal("steps are hidden by default")
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/sessions/"+session.ID+"/transcript", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("transcript status = %d", rr.Code)
	}
	turns, ok := decodeBody(t, rr.Body.Bytes())["turns"].([]any)
	if !ok || len(turns) != 1 {
		t.Fatalf("turns = %#v", turns)
	}
	turn := turns[0].(map[string]any)
	if turn["user_message"] != "How many beds are there?" || turn["agent_answer"] != "42 beds" {
		t.Fatalf("turn = %#v", turn)
	}
	if requests[0] != "User: How many beds are there?" {
		t.Fatalf("agent request = %q", requests[0])
	}
}

func TestChatEndpointStaleSessionThenFreshSession(t *testing.T) {
	cfg := testConfig(t, nil)
	gateway := newTestGateway(t, func(context.Context, string) (agent.Response, error) {
		return agent.Response{Output: "42 beds"}, nil
	})
	h := NewHandler(cfg, Dependencies{Gateway: gateway})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(`{"session_id":"id-from-before-restart","message":"How many beds?"}`)))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
	}
	if body := decodeBody(t, rr.Body.Bytes()); body["error_code"] != "SESSION_NOT_FOUND" {
		t.Fatalf("body = %#v", body)
	}

	// The browser client drops the stale id and resends the message.
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(`{"session_id":"","message":"How many beds?"}`)))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr.Body.Bytes())
	id, _ := body["session_id"].(string)
	if id == "" || id == "id-from-before-restart" || body["answer"] != "42 beds" {
		t.Fatalf("body = %#v", body)
	}
	turns, err := gateway.Transcript(id)
	if err != nil || len(turns) != 1 {
		t.Fatalf("Transcript() = %v, %v", turns, err)
	}
}

func TestChatEndpointIncludesStepsWhenAsked(t *testing.T) {
	cfg := testConfig(t, nil)
	gateway := newTestGateway(t, func(context.Context, string) (agent.Response, error) {
		return agent.Response{Output: "3", Steps: []agent.Step{{Tool: "sql_db_list_tables", Output: "Doctors, Hospitals, Patients"}}}, nil
	})

	rr := httptest.NewRecorder()
	NewHandler(cfg, Dependencies{Gateway: gateway}).
		ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(`{"message":"How many tables?","include_steps":true}`)))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
	}
	steps, ok := decodeBody(t, rr.Body.Bytes())["steps"].([]any)
	if !ok || len(steps) != 1 {
		t.Fatalf("steps = %#v", steps)
	}
}

func TestChatEndpointHidesFailureDetails(t *testing.T) {
	cfg := testConfig(t, nil)
	gateway := newTestGateway(t, func(context.Context, string) (agent.Response, error) {
		return agent.Response{}, errors.New("openai: 401 invalid api key sk-secret")
	})
	session := gateway.NewSession()

	rr := httptest.NewRecorder()
	NewHandler(cfg, Dependencies{Gateway: gateway}).
		ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(`{"session_id":"`+session.ID+`","message":"hi"}`)))
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "sk-secret") {
		t.Fatalf("failure leaked details: %s", rr.Body.String())
	}
	body := decodeBody(t, rr.Body.Bytes())
	if body["error_code"] != "AGENT_FAILED" || body["message"] != config.DefaultFailureMessage {
		t.Fatalf("body = %#v", body)
	}
	extra := body["context"].(map[string]any)
	if len(extra) != 1 || extra["session_id"] != session.ID {
		t.Fatalf("context = %#v", extra)
	}
	if turns, _ := gateway.Transcript(session.ID); len(turns) != 0 {
		t.Fatalf("failed turn was recorded: %#v", turns)
	}
}

func TestChatEndpointMapsTimeouts(t *testing.T) {
	cfg := testConfig(t, nil)
	gateway := newTestGateway(t, func(context.Context, string) (agent.Response, error) {
		return agent.Response{}, context.DeadlineExceeded
	})

	rr := httptest.NewRecorder()
	NewHandler(cfg, Dependencies{Gateway: gateway}).
		ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(`{"message":"slow"}`)))
	if rr.Code != http.StatusGatewayTimeout {
		t.Fatalf("status = %d", rr.Code)
	}
	if decodeBody(t, rr.Body.Bytes())["error_code"] != "AGENT_TIMEOUT" {
		t.Fatalf("body = %s", rr.Body.String())
	}
}

func TestChatEndpointAcceptsEmptyMessage(t *testing.T) {
	cfg := testConfig(t, nil)
	var got []string
	gateway := newTestGateway(t, func(_ context.Context, instruction string) (agent.Response, error) {
		got = append(got, instruction)
		return agent.Response{Output: "Please ask a question."}, nil
	})

	rr := httptest.NewRecorder()
	NewHandler(cfg, Dependencies{Gateway: gateway}).
		ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(`{"message":""}`)))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
	}
	if len(got) != 1 || got[0] != "User: " {
		t.Fatalf("agent requests = %#v", got)
	}
}

func TestChatEndpointRejectsBadInput(t *testing.T) {
	cfg := testConfig(t, nil)
	gateway := newTestGateway(t, func(context.Context, string) (agent.Response, error) {
		t.Fatal("agent must not be called")
		return agent.Response{}, nil
	})
	h := NewHandler(cfg, Dependencies{Gateway: gateway})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(`{"message":`)))
	if rr.Code != http.StatusBadRequest || decodeBody(t, rr.Body.Bytes())["error_code"] != "INVALID_JSON" {
		t.Fatalf("invalid json: status = %d, body=%s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(`{"session_id":"missing","message":"hi"}`)))
	if rr.Code != http.StatusNotFound || decodeBody(t, rr.Body.Bytes())["error_code"] != "SESSION_NOT_FOUND" {
		t.Fatalf("unknown session: status = %d, body=%s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/sessions/missing/transcript", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown transcript: status = %d", rr.Code)
	}
}

func TestChatEndpointWithoutGateway(t *testing.T) {
	cfg := testConfig(t, nil)
	rr := httptest.NewRecorder()
	NewHandler(cfg, Dependencies{}).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(`{"message":"hi"}`)))
	if rr.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestFailureStatus(t *testing.T) {
	if failureStatus("CANCELED") != statusClientClosedRequest {
		t.Fatal("canceled turns map to 499")
	}
	if failureStatus("AGENT_FAILED") != http.StatusBadGateway {
		t.Fatal("agent failures map to 502")
	}
}
