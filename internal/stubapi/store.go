package stubapi

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"
)

var (
	errNotFound = errors.New("not found")
	errConflict = errors.New("conflict")
	errInvalid  = errors.New("invalid request")
)

// reaction values kept per user on dishes and reviews.
const (
	like    int8 = 1
	dislike int8 = -1
)

type reactions map[int64]int8

// add records v for user. A user holds at most one reaction per entity.
func (r reactions) add(user int64, v int8) error {
	if _, ok := r[user]; ok {
		return errConflict
	}
	r[user] = v
	return nil
}

// remove withdraws reaction v of user. Withdrawing a reaction the user does
// not hold is a no-op; it reports whether anything changed.
func (r reactions) remove(user int64, v int8) bool {
	if got, ok := r[user]; !ok || got != v {
		return false
	}
	delete(r, user)
	return true
}

func (r reactions) count(v int8) int {
	n := 0
	for _, got := range r {
		if got == v {
			n++
		}
	}
	return n
}

func (r reactions) has(user int64, v int8) bool {
	got, ok := r[user]
	return ok && got == v
}

type dish struct {
	dishInput
	reactions reactions
}

func (d *dish) view() dishView {
	return dishView{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		ReleaseDate: d.ReleaseDate,
		Weight:      d.Weight,
		Pricing:     d.Pricing,
		Categories:  nonNil(d.Categories),
		Authors:     nonNil(d.Authors),
		Likes:       d.reactions.count(like),
	}
}

type user struct {
	userView
	friends map[int64]struct{}
}

type review struct {
	reviewView
	reactions reactions
}

func (r *review) view() reviewView {
	v := r.reviewView
	v.Useful = r.reactions.count(like) - r.reactions.count(dislike)
	return v
}

// Feed event types and operations.
const (
	eventLike   = "LIKE"
	eventReview = "REVIEW"
	eventFriend = "FRIEND"

	opAdd    = "ADD"
	opRemove = "REMOVE"
	opUpdate = "UPDATE"
)

var (
	categories = []named{
		{1, "Breakfast"}, {2, "Soups"}, {3, "Salads"},
		{4, "Main courses"}, {5, "Desserts"}, {6, "Drinks"},
	}
	pricing = []named{
		{1, "$"}, {2, "$$"}, {3, "$$$"}, {4, "$$$$"}, {5, "$$$$$"},
	}
)

// store holds every entity of the stub. All methods are safe for
// concurrent use.
type store struct {
	mu      sync.RWMutex
	now     func() time.Time
	lastID  int64
	dishes  map[int64]*dish
	users   map[int64]*user
	reviews map[int64]*review
	authors map[int64]*named
	events  []eventView
}

func newStore() *store {
	return &store{
		now:     time.Now,
		dishes:  make(map[int64]*dish),
		users:   make(map[int64]*user),
		reviews: make(map[int64]*review),
		authors: make(map[int64]*named),
	}
}

// nextID hands out ids from one sequence shared by all entity kinds, so an id
// left over from a deleted entity is never reused.
func (s *store) nextID() int64 {
	s.lastID++
	return s.lastID
}

func (s *store) record(userID int64, eventType, op string, entityID int64) {
	s.events = append(s.events, eventView{
		EventID:   int64(len(s.events) + 1),
		Timestamp: s.now().UnixMilli(),
		UserID:    userID,
		EventType: eventType,
		Operation: op,
		EntityID:  entityID,
	})
}

func sortedValues[V any](m map[int64]V) []V {
	keys := slices.Sorted(maps.Keys(m))
	out := make([]V, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return slices.Clone(s)
}

// Dishes.

func (s *store) listDishes() []dishView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dishViews(func(*dish) bool { return true })
}

func (s *store) dishViews(keep func(*dish) bool) []dishView {
	out := []dishView{}
	for _, d := range sortedValues(s.dishes) {
		if keep(d) {
			out = append(out, d.view())
		}
	}
	return out
}

func (s *store) createDish(in dishInput) dishView {
	s.mu.Lock()
	defer s.mu.Unlock()
	in.ID = s.nextID()
	d := &dish{dishInput: in, reactions: reactions{}}
	s.dishes[in.ID] = d
	return d.view()
}

func (s *store) updateDish(in dishInput) (dishView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.dishes[in.ID]
	if !ok {
		return dishView{}, errNotFound
	}
	d.dishInput = in
	return d.view(), nil
}

func (s *store) dish(id int64) (dishView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.dishes[id]
	if !ok {
		return dishView{}, errNotFound
	}
	return d.view(), nil
}

func (s *store) deleteDish(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.dishes[id]; !ok {
		return errNotFound
	}
	delete(s.dishes, id)
	return nil
}

// reactDish adds (add true) or withdraws a reaction of userID on dish id.
// User ids are not checked against the user table.
func (s *store) reactDish(id, userID int64, v int8, add bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.dishes[id]
	if !ok {
		return errNotFound
	}
	if add {
		if err := d.reactions.add(userID, v); err != nil {
			return err
		}
		if v == like {
			s.record(userID, eventLike, opAdd, id)
		}
		return nil
	}
	if d.reactions.remove(userID, v) && v == like {
		s.record(userID, eventLike, opRemove, id)
	}
	return nil
}

// byPopularity orders dishes by likes, most liked first, then by id.
func byPopularity(a, b dishView) int {
	if c := cmp.Compare(b.Likes, a.Likes); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// popular returns at most count dishes ranked by likes. Dishes without likes
// are ranked too. categoryID and year filter when positive.
func (s *store) popular(count int, categoryID int64, year int) []dishView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.dishViews(func(d *dish) bool {
		if categoryID > 0 && !slices.Contains(d.Categories, ref{categoryID}) {
			return false
		}
		if year > 0 && !strings.HasPrefix(d.ReleaseDate, yearPrefix(year)) {
			return false
		}
		return true
	})
	slices.SortStableFunc(out, byPopularity)
	if len(out) > count {
		out = out[:count]
	}
	return out
}

func yearPrefix(year int) string {
	return fmt.Sprintf("%04d-", year)
}

// search matches query case-insensitively against dish names ("title") or
// the names of the dish authors ("author").
func (s *store) search(query string, by []string) []dishView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q := strings.ToLower(query)
	out := s.dishViews(func(d *dish) bool {
		for _, field := range by {
			switch field {
			case "title":
				if strings.Contains(strings.ToLower(d.Name), q) {
					return true
				}
			case "author":
				for _, a := range d.Authors {
					if author, ok := s.authors[a.ID]; ok && strings.Contains(strings.ToLower(author.Name), q) {
						return true
					}
				}
			}
		}
		return false
	})
	slices.SortStableFunc(out, byPopularity)
	return out
}

func (s *store) authorDishes(authorID int64, sortBy string) []dishView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.dishViews(func(d *dish) bool {
		return slices.Contains(d.Authors, ref{authorID})
	})
	switch sortBy {
	case "likes":
		slices.SortStableFunc(out, byPopularity)
	case "year":
		slices.SortStableFunc(out, func(a, b dishView) int { return cmp.Compare(a.ReleaseDate, b.ReleaseDate) })
	case "name":
		slices.SortStableFunc(out, func(a, b dishView) int { return cmp.Compare(a.Name, b.Name) })
	}
	return out
}

// commonDishes returns dishes liked by both users, most liked first.
func (s *store) commonDishes(userID, friendID int64) []dishView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.dishViews(func(d *dish) bool {
		return d.reactions.has(userID, like) && d.reactions.has(friendID, like)
	})
	slices.SortStableFunc(out, byPopularity)
	return out
}

// recommendations returns dishes liked by users who share at least one liked
// dish with userID, excluding dishes userID already likes.
func (s *store) recommendations(userID int64) ([]dishView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.users[userID]; !ok {
		return nil, errNotFound
	}

	similar := map[int64]struct{}{}
	for _, d := range s.dishes {
		if !d.reactions.has(userID, like) {
			continue
		}
		for other, v := range d.reactions {
			if other != userID && v == like {
				similar[other] = struct{}{}
			}
		}
	}
	out := s.dishViews(func(d *dish) bool {
		if d.reactions.has(userID, like) {
			return false
		}
		for other := range similar {
			if d.reactions.has(other, like) {
				return true
			}
		}
		return false
	})
	slices.SortStableFunc(out, byPopularity)
	return out, nil
}

// Users.

func (s *store) listUsers(query, by string) []userView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q := strings.ToLower(query)
	out := []userView{}
	for _, u := range sortedValues(s.users) {
		if q != "" {
			field := u.Login
			if by == "name" {
				field = u.Name
			}
			if !strings.Contains(strings.ToLower(field), q) {
				continue
			}
		}
		out = append(out, u.userView)
	}
	return out
}

func (s *store) createUser(in userInput) userView {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &user{userView: toUserView(in), friends: map[int64]struct{}{}}
	u.ID = s.nextID()
	s.users[u.ID] = u
	return u.userView
}

func toUserView(in userInput) userView {
	name := in.Name
	if strings.TrimSpace(name) == "" {
		name = in.Login
	}
	return userView{ID: in.ID, Email: in.Email, Login: in.Login, Name: name, Birthday: in.Birthday}
}

// mergeUser returns the stored user id with the non-empty fields of patch
// applied, without saving it.
func (s *store) mergeUser(patch userInput) (userInput, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[patch.ID]
	if !ok {
		return userInput{}, errNotFound
	}
	merged := userInput{ID: u.ID, Email: u.Email, Login: u.Login, Name: u.Name, Birthday: u.Birthday}
	if patch.Email != "" {
		merged.Email = patch.Email
	}
	if patch.Login != "" {
		merged.Login = patch.Login
	}
	if patch.Name != "" {
		merged.Name = patch.Name
	}
	if patch.Birthday != "" {
		merged.Birthday = patch.Birthday
	}
	return merged, nil
}

func (s *store) updateUser(in userInput) (userView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[in.ID]
	if !ok {
		return userView{}, errNotFound
	}
	u.userView = toUserView(in)
	return u.userView, nil
}

func (s *store) user(id int64) (userView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return userView{}, errNotFound
	}
	return u.userView, nil
}

func (s *store) deleteUser(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return errNotFound
	}
	delete(s.users, id)
	for _, u := range s.users {
		delete(u.friends, id)
	}
	return nil
}

// addFriend makes friendID a friend of id. Friendship is one-directional.
func (s *store) addFriend(id, friendID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return errNotFound
	}
	if _, ok := s.users[friendID]; !ok {
		return errNotFound
	}
	if id == friendID {
		return errInvalid
	}
	u.friends[friendID] = struct{}{}
	s.record(id, eventFriend, opAdd, friendID)
	return nil
}

func (s *store) removeFriend(id, friendID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return errNotFound
	}
	if _, ok := s.users[friendID]; !ok {
		return errNotFound
	}
	if _, ok := u.friends[friendID]; ok {
		delete(u.friends, friendID)
		s.record(id, eventFriend, opRemove, friendID)
	}
	return nil
}

func (s *store) friendViews(ids map[int64]struct{}) []userView {
	out := []userView{}
	for _, id := range slices.Sorted(maps.Keys(ids)) {
		if f, ok := s.users[id]; ok {
			out = append(out, f.userView)
		}
	}
	return out
}

func (s *store) friends(id int64) ([]userView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, errNotFound
	}
	return s.friendViews(u.friends), nil
}

func (s *store) commonFriends(id, otherID int64) ([]userView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, errNotFound
	}
	other, ok := s.users[otherID]
	if !ok {
		return nil, errNotFound
	}
	common := map[int64]struct{}{}
	for f := range u.friends {
		if _, ok := other.friends[f]; ok {
			common[f] = struct{}{}
		}
	}
	return s.friendViews(common), nil
}

func (s *store) feed(id int64) ([]eventView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.users[id]; !ok {
		return nil, errNotFound
	}
	out := []eventView{}
	for _, e := range s.events {
		if e.UserID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

// Reviews.

// listReviews returns reviews, most useful first. dishID filters when
// positive; count limits when positive.
func (s *store) listReviews(dishID int64, count int) []reviewView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []reviewView{}
	for _, r := range sortedValues(s.reviews) {
		if dishID > 0 && r.DishID != dishID {
			continue
		}
		out = append(out, r.view())
	}
	slices.SortStableFunc(out, func(a, b reviewView) int { return cmp.Compare(b.Useful, a.Useful) })
	if count > 0 && len(out) > count {
		out = out[:count]
	}
	return out
}

func (s *store) createReview(in reviewInput) reviewView {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := &review{
		reviewView: reviewView{
			ReviewID:   s.nextID(),
			Content:    in.Content,
			IsPositive: *in.IsPositive,
			UserID:     in.UserID,
			DishID:     in.DishID,
		},
		reactions: reactions{},
	}
	s.reviews[r.ReviewID] = r
	s.record(r.UserID, eventReview, opAdd, r.ReviewID)
	return r.view()
}

// updateReview changes content and sentiment. Author and dish are fixed at
// creation.
func (s *store) updateReview(in reviewInput) (reviewView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reviews[in.ReviewID]
	if !ok {
		return reviewView{}, errNotFound
	}
	r.Content = in.Content
	r.IsPositive = *in.IsPositive
	s.record(r.UserID, eventReview, opUpdate, r.ReviewID)
	return r.view(), nil
}

func (s *store) review(id int64) (reviewView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reviews[id]
	if !ok {
		return reviewView{}, errNotFound
	}
	return r.view(), nil
}

func (s *store) deleteReview(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reviews[id]
	if !ok {
		return errNotFound
	}
	delete(s.reviews, id)
	s.record(r.UserID, eventReview, opRemove, id)
	return nil
}

func (s *store) reactReview(id, userID int64, v int8, add bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reviews[id]
	if !ok {
		return errNotFound
	}
	if add {
		return r.reactions.add(userID, v)
	}
	r.reactions.remove(userID, v)
	return nil
}

// Authors.

func (s *store) listAuthors() []named {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []named{}
	for _, a := range sortedValues(s.authors) {
		out = append(out, *a)
	}
	return out
}

// createAuthor stores a new author. Names need not be unique.
func (s *store) createAuthor(name string) named {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := &named{ID: s.nextID(), Name: name}
	s.authors[a.ID] = a
	return *a
}

func (s *store) updateAuthor(id int64, name string) (named, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.authors[id]
	if !ok {
		return named{}, errNotFound
	}
	a.Name = name
	return *a, nil
}

func (s *store) author(id int64) (named, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.authors[id]
	if !ok {
		return named{}, errNotFound
	}
	return *a, nil
}

func (s *store) deleteAuthor(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.authors[id]; !ok {
		return errNotFound
	}
	delete(s.authors, id)
	return nil
}

func findNamed(list []named, id int64) (named, error) {
	for _, n := range list {
		if n.ID == id {
			return n, nil
		}
	}
	return named{}, errNotFound
}
