package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		want      []Message
		unwrapped bool
		malformed bool
	}{
		{name: "empty list", raw: `[]`, want: []Message{}},
		{name: "two messages", raw: `[{"role":"user","content":"a"},{"role":"assistant","content":"b"}]`,
			want: []Message{UserMessage("a"), AssistantMessage("b")}},
		{name: "double encoded", raw: `"[{\"role\":\"user\",\"content\":\"a\"}]"`,
			want: []Message{UserMessage("a")}, unwrapped: true},
		{name: "scalar", raw: `42`, malformed: true},
		{name: "object", raw: `{"role":"user","content":"a"}`, malformed: true},
		{name: "null", raw: `null`, malformed: true},
		{name: "garbage", raw: `not json`, malformed: true},
		{name: "string without list", raw: `"hello"`, unwrapped: true, malformed: true},
		{name: "scalar item", raw: `[1,2]`, malformed: true},
		{name: "unknown role", raw: `[{"role":"system","content":"x"}]`, malformed: true},
		{name: "empty value", raw: ``, malformed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, unwrapped, err := Decode([]byte(tt.raw))
			assert.Equal(t, tt.unwrapped, unwrapped)
			if tt.malformed {
				require.ErrorIs(t, err, ErrMalformedHistory)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncode_NilIsEmptyList(t *testing.T) {
	b, err := Encode(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(b))

	b, err = Encode([]Message{UserMessage("hello"), AssistantMessage("hi there")})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"role":"user","content":"hello"},{"role":"assistant","content":"hi there"}]`, string(b))
}
