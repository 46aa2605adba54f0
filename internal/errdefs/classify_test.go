package errdefs

import (
	"errors"
	"net/http"
	"testing"
)

func respWithStatus(status int) *http.Response {
	return &http.Response{StatusCode: status}
}

func TestClassifyNoResponse(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	e := Classify(nil, nil, cause)
	if e == nil {
		t.Fatal("expected error for missing response")
	}
	if e.Kind != KindNetwork {
		t.Fatalf("kind = %s, want %s", e.Kind, KindNetwork)
	}
	if !errors.Is(e, cause) {
		t.Fatal("cause not preserved in chain")
	}
}

func TestClassifyStatusTable(t *testing.T) {
	cases := []struct {
		status int
		want   Kind
	}{
		{400, KindBusiness},
		{401, KindAuth},
		{403, KindAuth},
		{409, KindBusiness},
		{412, KindBusiness},
		{422, KindBusiness},
		{500, KindSystem},
		{502, KindSystem},
		{503, KindSystem},
		{504, KindSystem},
		{418, KindBusiness}, // outside the table degrades to business
		{301, KindBusiness},
	}
	for _, tc := range cases {
		e := Classify(respWithStatus(tc.status), nil, nil)
		if e == nil {
			t.Fatalf("status %d: expected an error", tc.status)
		}
		if e.Kind != tc.want {
			t.Fatalf("status %d: kind = %s, want %s", tc.status, e.Kind, tc.want)
		}
		if e.Code != tc.status {
			t.Fatalf("status %d: code = %d, want status", tc.status, e.Code)
		}
	}
}

func TestClassifyOKEnvelope(t *testing.T) {
	if e := Classify(respWithStatus(200), []byte(`{"code":200,"msg":"OK","data":{}}`), nil); e != nil {
		t.Fatalf("success envelope classified as %v", e)
	}
	if e := Classify(respWithStatus(200), nil, nil); e != nil {
		t.Fatalf("bare 200 classified as %v", e)
	}

	e := Classify(respWithStatus(200), []byte(`{"code":400,"msg":"username exists","data":null}`), nil)
	if e == nil {
		t.Fatal("business code under HTTP 200 not classified")
	}
	if e.Kind != KindBusiness {
		t.Fatalf("kind = %s, want %s", e.Kind, KindBusiness)
	}
	if e.Code != 400 {
		t.Fatalf("code = %d, want envelope code 400", e.Code)
	}
	if e.Message != "username exists" {
		t.Fatalf("message = %q", e.Message)
	}
}

func TestClassifyMessagePreference(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"msg first", `{"msg":"from msg","message":"from message","detail":"from detail"}`, "from msg"},
		{"message second", `{"message":"from message","detail":"from detail"}`, "from message"},
		{"detail third", `{"detail":"from detail"}`, "from detail"},
		{"generic fallback", `{}`, "invalid request"},
		{"empty body fallback", ``, "invalid request"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := Classify(respWithStatus(400), []byte(tc.body), nil)
			if e.Message != tc.want {
				t.Fatalf("message = %q, want %q", e.Message, tc.want)
			}
		})
	}
}

func TestClassifyCarriesData(t *testing.T) {
	body := []byte(`{"code":400,"msg":"validation failed","data":{"field":"email"}}`)
	e := Classify(respWithStatus(422), body, nil)
	m, ok := e.Data.(map[string]any)
	if !ok {
		t.Fatalf("data = %T, want map", e.Data)
	}
	if m["field"] != "email" {
		t.Fatalf("data field = %v", m["field"])
	}
}

func TestStatusMessageFallback(t *testing.T) {
	if got := StatusMessage(404, "x"); got != "resource not found" {
		t.Fatalf("known status message = %q", got)
	}
	if got := StatusMessage(299, "fallback"); got != "fallback" {
		t.Fatalf("unknown status message = %q", got)
	}
}
