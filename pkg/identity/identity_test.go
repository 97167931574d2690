package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		tc    string
		valid bool
	}{
		{name: "known valid", tc: "10000000146", valid: true},
		{name: "known valid 2", tc: "12345678950", valid: true},
		{name: "repeated digit", tc: "11111111110", valid: false},
		{name: "all identical", tc: "22222222222", valid: false},
		{name: "leading zero", tc: "01234567890", valid: false},
		{name: "too short", tc: "1234567890", valid: false},
		{name: "too long", tc: "123456789012", valid: false},
		{name: "empty", tc: "", valid: false},
		{name: "non digit", tc: "1234567890a", valid: false},
		{name: "bad check10", tc: "12345678960", valid: false},
		{name: "bad check11", tc: "12345678951", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.tc)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
			assert.Equal(t, tt.valid, IsValid(tt.tc))
		})
	}
}
