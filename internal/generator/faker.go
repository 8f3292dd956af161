// Package generator produces the fake data virtual users submit: profiles,
// review texts and search terms.
package generator

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/example/restarate/loadgen/internal/api"
)

// MaxReviewLength bounds generated review texts, in characters.
const MaxReviewLength = 150

var (
	birthdayFrom = time.Date(1950, time.January, 1, 0, 0, 0, 0, time.UTC)
	birthdayTo   = time.Date(2005, time.December, 31, 0, 0, 0, 0, time.UTC)
	releaseFrom  = time.Date(2015, time.January, 1, 0, 0, 0, 0, time.UTC)
	releaseTo    = time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC)
)

// Faker wraps a gofakeit source. It is not safe for concurrent use; each
// session owns one.
type Faker struct {
	faker *gofakeit.Faker
}

// NewFaker returns a generator. Seed 0 picks a random seed.
func NewFaker(seed uint64) *Faker {
	return &Faker{faker: gofakeit.New(seed)}
}

// User synthesizes a registration payload.
func (g *Faker) User() api.User {
	return api.User{
		Email:    g.faker.Email(),
		Login:    g.login(),
		Name:     g.faker.Name(),
		Birthday: g.faker.DateRange(birthdayFrom, birthdayTo).Format(time.DateOnly),
	}
}

// login returns a username with any whitespace removed. gofakeit builds
// some usernames from multi-word nouns and city names.
func (g *Faker) login() string {
	return strings.Join(strings.Fields(g.faker.Username()), "")
}

// Profile synthesizes a profile update for userID.
func (g *Faker) Profile(userID int64) api.ProfileUpdate {
	return api.ProfileUpdate{
		ID:    userID,
		Name:  g.faker.Name(),
		Email: g.faker.Email(),
	}
}

// ReviewText returns free text of at most MaxReviewLength characters.
func (g *Faker) ReviewText() string {
	text := g.faker.Paragraph(1, 3, 10, " ")
	if text == "" {
		text = g.faker.Sentence(6)
	}
	return clip(text, MaxReviewLength)
}

// Dish synthesizes a dish with one of the five pricing levels and one of
// categories 1..categories.
func (g *Faker) Dish(categories int) api.Dish {
	return api.Dish{
		Name:        g.faker.Dinner(),
		Description: g.faker.Sentence(8),
		ReleaseDate: g.faker.DateRange(releaseFrom, releaseTo).Format(time.DateOnly),
		Weight:      g.faker.Number(100, 800),
		Pricing:     &api.Ref{ID: int64(g.faker.Number(1, 5))},
		Categories:  []api.Ref{{ID: int64(g.faker.Number(1, max(categories, 1)))}},
	}
}

// AuthorName returns a person name.
func (g *Faker) AuthorName() string {
	return g.faker.Name()
}

// SearchTerm returns a single lowercase word.
func (g *Faker) SearchTerm() string {
	return strings.ToLower(g.faker.Word())
}

// Bool returns a random boolean.
func (g *Faker) Bool() bool {
	return g.faker.Bool()
}

// clip cuts s to at most n runes, preferring the last word boundary.
func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)[:n]
	cut := string(runes)
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:")
}
