package pkg

import "golang.org/x/crypto/bcrypt"

// hashCost trades sign-up latency for brute-force resistance. 14 keeps
// a single hash well under a second on current hardware.
const hashCost = 14

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	return BytesToString(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
