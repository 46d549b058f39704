package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"parkease/internal/domain"
	"parkease/internal/repository"
)

type userRepository struct{ s *Store }

func NewUserRepository(s *Store) repository.UserRepository {
	return &userRepository{s: s}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	defer r.s.lock(ctx)()
	for _, u := range r.s.t.users {
		if strings.EqualFold(u.Email, user.Email) {
			return nil, fmt.Errorf("%w: email '%s' is already registered", repository.ErrDuplicateEntry, user.Email)
		}
	}
	user.ID = r.s.nextID("users")
	user.CreatedAt = r.s.now()
	r.s.t.users[user.ID] = *user
	return user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	defer r.s.lock(ctx)()
	for _, u := range r.s.t.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepository) FindByID(ctx context.Context, id int) (*domain.User, error) {
	defer r.s.lock(ctx)()
	u, ok := r.s.t.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) (*domain.User, error) {
	defer r.s.lock(ctx)()
	current, ok := r.s.t.users[user.ID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	current.FullName = user.FullName
	current.Phone = user.Phone
	current.Address = user.Address
	current.Pincode = user.Pincode
	current.Role = user.Role
	r.s.t.users[user.ID] = current
	return &current, nil
}

// Delete cascades to the user's vehicles, sessions and jobs.
func (r *userRepository) Delete(ctx context.Context, id int) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.t.users[id]; !ok {
		return repository.ErrNotFound
	}
	for vid, v := range r.s.t.vehicles {
		if v.UserID != id {
			continue
		}
		if _, parked := r.s.spotOf(vid); parked {
			return fmt.Errorf("UserRepository.Delete: vehicle %d still occupies a spot", vid)
		}
	}
	for vid, v := range r.s.t.vehicles {
		if v.UserID == id {
			delete(r.s.t.vehicles, vid)
		}
	}
	for sid, ps := range r.s.t.sessions {
		if ps.UserID == id {
			delete(r.s.t.sessions, sid)
		}
	}
	for jid, j := range r.s.t.jobs {
		if j.UserID == id {
			delete(r.s.t.jobs, jid)
		}
	}
	delete(r.s.t.users, id)
	return nil
}

func (r *userRepository) ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	defer r.s.lock(ctx)()
	return r.s.usersWhere(func(u domain.User) bool { return u.Role == role }), nil
}

func (r *userRepository) Search(ctx context.Context, query string) ([]domain.User, error) {
	defer r.s.lock(ctx)()
	term := strings.ToLower(strings.TrimSpace(query))
	return r.s.usersWhere(func(u domain.User) bool {
		if u.Role != domain.RoleUser {
			return false
		}
		for _, field := range []string{u.FullName, u.Email, u.Phone, u.Pincode} {
			if strings.Contains(strings.ToLower(field), term) {
				return true
			}
		}
		return false
	}), nil
}

func (r *userRepository) CurrentSpots(ctx context.Context) (map[int][]domain.CurrentSpot, error) {
	defer r.s.lock(ctx)()
	out := map[int][]domain.CurrentSpot{}
	for _, sp := range r.s.t.spots {
		if !sp.Occupied() {
			continue
		}
		v := r.s.t.vehicles[int(sp.VehicleID.Int64)]
		out[v.UserID] = append(out[v.UserID], domain.CurrentSpot{
			SpotID:       sp.ID,
			SpotNumber:   sp.SpotNumber,
			LotName:      r.s.t.lots[sp.LotID].Name,
			LicensePlate: v.LicensePlate,
		})
	}
	for _, spots := range out {
		sort.Slice(spots, func(i, j int) bool {
			if spots[i].LotName != spots[j].LotName {
				return spots[i].LotName < spots[j].LotName
			}
			return spots[i].SpotNumber < spots[j].SpotNumber
		})
	}
	return out, nil
}

// usersWhere returns matching users ordered by id. Callers hold the lock.
func (s *Store) usersWhere(keep func(domain.User) bool) []domain.User {
	users := []domain.User{}
	for _, u := range s.t.users {
		if keep(u) {
			users = append(users, u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}
