package utils

import "golang.org/x/crypto/bcrypt"

// Cost defaults low to keep interactive flows fast in development; raise
// BCRYPT_COST in production deployments.
var bcryptCost = 6

func ConfigureBcrypt(cost int) {
	if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
		bcryptCost = cost
	}
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
