package fetchapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCursorFrom(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  string
	}{
		{name: "path with trailing from", token: "/dogs/search?size=20&from=40", want: "40"},
		{name: "from only", token: "from=20", want: "20"},
		{name: "bare value passes through", token: "60", want: "60"},
		{name: "empty", token: "", want: ""},
		{name: "from not trailing passes through", token: "/dogs/search?from=20&size=20", want: "/dogs/search?from=20&size=20"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CursorFrom(tt.token))
		})
	}
}
