package generator

import (
	"net/mail"
	"strings"
	"testing"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFaker_User(t *testing.T) {
	g := NewFaker(42)
	for i := 0; i < 50; i++ {
		u := g.User()

		_, err := mail.ParseAddress(u.Email)
		assert.NoError(t, err, u.Email)
		assert.NotEmpty(t, u.Login)
		assert.NotContains(t, u.Login, " ")
		assert.NotEmpty(t, u.Name)

		born, err := time.Parse(time.DateOnly, u.Birthday)
		require.NoError(t, err)
		assert.False(t, born.Before(birthdayFrom))
		assert.False(t, born.After(birthdayTo))
		assert.Zero(t, u.ID)
	}
}

func TestFaker_LoginHasNoWhitespace(t *testing.T) {
	for seed := uint64(1); seed <= 200; seed++ {
		g := NewFaker(seed)
		for i := 0; i < 50; i++ {
			login := g.User().Login
			require.NotEmpty(t, login, "seed %d", seed)
			require.Equal(t, -1, strings.IndexFunc(login, unicode.IsSpace), "seed %d: %q", seed, login)
		}
	}
}

func TestFaker_Dish(t *testing.T) {
	g := NewFaker(3)
	for i := 0; i < 30; i++ {
		d := g.Dish(6)

		assert.NotEmpty(t, d.Name)
		assert.Positive(t, d.Weight)
		require.NotNil(t, d.Pricing)
		assert.GreaterOrEqual(t, d.Pricing.ID, int64(1))
		assert.LessOrEqual(t, d.Pricing.ID, int64(5))
		require.Len(t, d.Categories, 1)
		assert.LessOrEqual(t, d.Categories[0].ID, int64(6))

		released, err := time.Parse(time.DateOnly, d.ReleaseDate)
		require.NoError(t, err)
		assert.False(t, released.After(releaseTo))
	}
}

func TestFaker_Deterministic(t *testing.T) {
	a, b := NewFaker(7), NewFaker(7)
	assert.Equal(t, a.User(), b.User())
	assert.Equal(t, a.ReviewText(), b.ReviewText())
}

func TestFaker_Profile(t *testing.T) {
	p := NewFaker(1).Profile(99)
	assert.Equal(t, int64(99), p.ID)
	assert.NotEmpty(t, p.Name)
	assert.Contains(t, p.Email, "@")
}

func TestFaker_ReviewText(t *testing.T) {
	g := NewFaker(3)
	for i := 0; i < 100; i++ {
		text := g.ReviewText()
		assert.NotEmpty(t, text)
		assert.LessOrEqual(t, utf8.RuneCountInString(text), MaxReviewLength)
	}
}

func TestFaker_SearchTerm(t *testing.T) {
	term := NewFaker(5).SearchTerm()
	assert.NotEmpty(t, term)
	assert.Equal(t, strings.ToLower(term), term)
}

func TestClip(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"hello brave new world", 12, "hello brave"},
		{"борщ и пельмени", 9, "борщ и"},
		{"abcdefghij", 4, "abcd"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, clip(tt.in, tt.n))
		})
	}
}
