package validator

import (
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
)

type renamePayload struct {
	Label string `json:"label" validate:"required,max=8"`
	Skip  string `json:"-" validate:"max=2"`
}

func TestValidateStructUsesJSONFieldNames(t *testing.T) {
	err := ValidateStruct(&renamePayload{})
	if err == nil {
		t.Fatal("expected a validation failure")
	}

	ve, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	if len(ve) != 1 {
		t.Fatalf("expected one failure, got %d", len(ve))
	}
	if ve[0].Field != "label" || ve[0].Tag != "required" {
		t.Fatalf("unexpected failure: %+v", ve[0])
	}
}

func TestValidateStructReportsEveryFailure(t *testing.T) {
	err := ValidateStruct(&renamePayload{Label: "far too long", Skip: "abc"})

	ve, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	if len(ve) != 2 {
		t.Fatalf("expected two failures, got %d", len(ve))
	}

	msg := ve.Error()
	if !strings.Contains(msg, "label: max=8") {
		t.Fatalf("message missing label failure: %s", msg)
	}
	// Fields hidden from JSON fall back to the Go name.
	if !strings.Contains(msg, "Skip: max=2") {
		t.Fatalf("message missing Skip failure: %s", msg)
	}
}

func TestRegisterValidationCustomRule(t *testing.T) {
	if err := RegisterValidation("evenlen", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String())%2 == 0
	}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	type payload struct {
		Code string `json:"code" validate:"evenlen"`
	}

	if err := ValidateStruct(&payload{Code: "ABCD"}); err != nil {
		t.Fatalf("unexpected failure: %v", err)
	}
	if err := ValidateStruct(&payload{Code: "ABC"}); err == nil {
		t.Fatal("expected the custom rule to fail")
	}
}
