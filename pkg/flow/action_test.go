package flow

import (
	"strings"
	"testing"
)

func TestOp_IsValid(t *testing.T) {
	for _, op := range []Op{OpWaitForPresence, OpWaitForClickable, OpClick, OpTypeText, OpWaitForAll} {
		if !op.IsValid() {
			t.Errorf("%s should be valid", op)
		}
	}
	if Op("swipe").IsValid() {
		t.Error("swipe should not be valid")
	}
}

func TestOp_NeedsActionable(t *testing.T) {
	tests := map[Op]bool{
		OpWaitForPresence:  false,
		OpWaitForAll:       false,
		OpWaitForClickable: true,
		OpClick:            true,
		OpTypeText:         true,
	}
	for op, want := range tests {
		if got := op.NeedsActionable(); got != want {
			t.Errorf("%s.NeedsActionable() = %v, want %v", op, got, want)
		}
	}
}

func TestAction_Validate(t *testing.T) {
	withChild := Click(ID("row"))
	withChild.Locator.Child = &Locator{}

	tests := []struct {
		name    string
		action  Action
		wantErr string
	}{
		{"valid click", Click(ID("ok")), ""},
		{"valid typeText", TypeText(ID("box"), "hi"), ""},
		{"unknown op", Action{Op: "swipe", Locator: ID("x"), TimeoutMs: 1}, "unknown operation"},
		{"empty locator", Click(Locator{}), "locator is required"},
		{"empty child", withChild, "child locator is empty"},
		{"zero timeout", Action{Op: OpClick, Locator: ID("x")}, "timeout must be positive"},
		{"negative settle", Action{Op: OpClick, Locator: ID("x"), TimeoutMs: 1, SettleMs: -1}, "settle"},
		{"negative index", Action{Op: OpClick, Locator: ID("x"), TimeoutMs: 1, Index: -1}, "index"},
		{"typeText without input", TypeText(ID("box"), ""), "input is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.action.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestAction_Describe(t *testing.T) {
	tests := []struct {
		action Action
		want   string
	}{
		{Click(ID("com.app:id/ok")), "click #com.app:id/ok"},
		{Click(Text("Post")), "click Post"},
		{TypeText(XPath("//input"), "hi"), `typeText xpath="//input" "hi"`},
		{WaitForAll(Locator{Kind: ByID, Value: "row", Child: &Locator{Kind: ByText, Value: "Reply"}}), "waitForAll #row > Reply"},
	}
	for _, tt := range tests {
		if got := tt.action.Describe(); got != tt.want {
			t.Errorf("Describe() = %q, want %q", got, tt.want)
		}
		if got := tt.action.Name(); got != tt.want {
			t.Errorf("Name() = %q, want %q", got, tt.want)
		}
	}
}

func TestFlow_Validate(t *testing.T) {
	empty := &Flow{}
	if err := empty.Validate(); err == nil {
		t.Error("expected error for empty profile")
	}

	f := &Flow{Actions: []Action{
		Click(ID("ok")),
		{Op: OpClick, Locator: ID("x")},
		TypeText(ID("box"), ""),
	}}
	err := f.Validate()
	if err == nil {
		t.Fatal("expected errors")
	}
	msg := err.Error()
	if strings.Contains(msg, "action 1:") {
		t.Errorf("valid action reported: %s", msg)
	}
	for _, want := range []string{"action 2:", "action 3:"} {
		if !strings.Contains(msg, want) {
			t.Errorf("missing %q in %s", want, msg)
		}
	}
}

func TestFlow_Name(t *testing.T) {
	f := &Flow{SourcePath: "builtin:reddit"}
	if f.Name() != "builtin:reddit" {
		t.Errorf("Name() = %q", f.Name())
	}
	f.Config.Name = "reddit"
	if f.Name() != "reddit" {
		t.Errorf("Name() = %q", f.Name())
	}
}
