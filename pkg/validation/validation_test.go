package validation

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestSendMessageRequest(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		message string
		errMsg  string
	}{
		{name: "valid", message: "I want a todo app"},
		{name: "empty", message: "", errMsg: "message cannot be empty"},
		{name: "whitespace", message: "  \n\t", errMsg: "message cannot be empty"},
		{name: "too long", message: strings.Repeat("x", 20001), errMsg: "message must be at most 20000 characters long"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, v.Struct(SendMessageRequest{Message: tt.message}), tt.errMsg != "", tt.errMsg)
		})
	}
}

func TestSetAnswerRequest(t *testing.T) {
	v := New()

	checkErr(t, v.Struct(SetAnswerRequest{Key: "targetUser", Value: "students"}), false, "")
	checkErr(t, v.Struct(SetAnswerRequest{Key: "flag", Value: nil}), false, "")
	checkErr(t, v.Struct(SetAnswerRequest{Key: " "}), true, "key cannot be empty")
}

func TestUpdateSpecificationRequest(t *testing.T) {
	v := New()
	prompt := "new prompt"

	tests := []struct {
		name    string
		req     UpdateSpecificationRequest
		wantErr bool
		errMsg  string
	}{
		{name: "empty patch", req: UpdateSpecificationRequest{}},
		{name: "prompt only", req: UpdateSpecificationRequest{BuildPrompt: &prompt}},
		{name: "object document", req: UpdateSpecificationRequest{Document: json.RawMessage(`{"overview":{}}`)}},
		{name: "array document", req: UpdateSpecificationRequest{Document: json.RawMessage(`[1]`)}, wantErr: true, errMsg: "document must be a JSON object"},
		{name: "null document", req: UpdateSpecificationRequest{Document: json.RawMessage(`null`)}, wantErr: true, errMsg: "document must be a JSON object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, v.Struct(tt.req), tt.wantErr, tt.errMsg)
		})
	}
}
