package utils

import "github.com/google/uuid"

func GenerateIdentity() string {
	return uuid.NewString()
}
