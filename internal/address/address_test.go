package address

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Address
		wantErr bool
	}{
		{"simple", "jane@example.com", Address{"jane", "example.com"}, false},
		{"lowercases both parts", "Jane@Example.COM", Address{"jane", "example.com"}, false},
		{"trims whitespace", "  jane@example.com\n", Address{"jane", "example.com"}, false},
		{"splits on first at", "a@b@c.com", Address{"a", "b@c.com"}, false},
		{"missing at", "jane.example.com", Address{}, true},
		{"empty local", "@example.com", Address{}, true},
		{"empty domain", "jane@", Address{}, true},
		{"empty", "", Address{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanonicalIdentity(t *testing.T) {
	a := MustParse("Jane@Example.com")
	b := MustParse("jane@example.com")

	assert.Equal(t, a, b)
	assert.Equal(t, "jane@example.com", a.Canonical())
	assert.Equal(t, a.Canonical(), Canonical(" JANE@EXAMPLE.COM "))
}

func TestMustParse_Panics(t *testing.T) {
	assert.Panics(t, func() { MustParse("nope") })
}

func TestDedupe(t *testing.T) {
	in := []Address{
		MustParse("b@x.com"),
		MustParse("A@x.com"),
		MustParse("B@X.com"),
		MustParse("a@x.com"),
		MustParse("c@x.com"),
	}

	got := Dedupe(in)

	assert.Equal(t, []string{"b@x.com", "a@x.com", "c@x.com"}, Strings(got))
}

func TestDedupe_Empty(t *testing.T) {
	got := Dedupe(nil)
	require.NotNil(t, got)
	assert.Empty(t, got)
}
