package store

import "golang.org/x/crypto/bcrypt"

type options struct {
	bcryptCost int
}

type Option func(*options)

// WithBcryptCost overrides the cost used to hash admin passwords.
func WithBcryptCost(cost int) Option {
	return func(o *options) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			o.bcryptCost = cost
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{bcryptCost: bcrypt.DefaultCost}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

func hashPassword(password string, cost int) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), cost)
}

// CheckPassword compares a plaintext password against the stored hash.
func (a Admin) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(password)) == nil
}
