package admin

import (
	"sync"

	"golang.org/x/crypto/bcrypt"

	"FoodMart/internal/store"
)

var compareHash = bcrypt.CompareHashAndPassword

// absentHash stands in for an admin that does not exist, so an unknown email
// costs the same bcrypt work as a wrong password.
var absentHash = sync.OnceValue(func() []byte {
	h, err := bcrypt.GenerateFromPassword([]byte("no-such-admin"), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return h
})

func verifyLogin(a store.Admin, found bool, password string) bool {
	if !found {
		_ = compareHash(absentHash(), []byte(password))
		return false
	}
	return compareHash(a.PasswordHash, []byte(password)) == nil
}
