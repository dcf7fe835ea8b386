package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type planForm struct {
	Name    string   `json:"name" binding:"required"`
	Mode    string   `json:"restoreMode" binding:"required,restore_mode"`
	Time    string   `json:"time" binding:"omitempty,hhmm"`
	Emails  []string `json:"email" binding:"omitempty,dive,email"`
	Webhook string   `json:"webhook" binding:"omitempty,url"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name    string
		form    planForm
		wantErr bool
	}{
		{name: "valid", form: planForm{Name: "p", Mode: "merge", Time: "02:30", Emails: []string{"a@b.io"}, Webhook: "https://hooks.example.com/x"}},
		{name: "missing name", form: planForm{Mode: "merge"}, wantErr: true},
		{name: "bad mode", form: planForm{Name: "p", Mode: "overwrite"}, wantErr: true},
		{name: "bad time", form: planForm{Name: "p", Mode: "skip", Time: "24:00"}, wantErr: true},
		{name: "bad email", form: planForm{Name: "p", Mode: "skip", Emails: []string{"nope"}}, wantErr: true},
		{name: "bad webhook", form: planForm{Name: "p", Mode: "skip", Webhook: "not a url"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(&tt.form)
			if tt.wantErr {
				assert.Error(t, err)
				assert.NotEmpty(t, Messages(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateStruct_NonStruct(t *testing.T) {
	assert.NoError(t, Default().ValidateStruct([]int{1}))
}
