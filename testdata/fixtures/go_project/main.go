package project

import (
	"fmt"
	"strings"
)

// Run wires a service and prints the first user.
func Run(repo Repository) error {
	svc := NewUserService(repo)
	user, err := svc.GetUser(1)
	if err != nil {
		return err
	}
	fmt.Println(strings.ToUpper(user.Name))
	return nil
}

// Sum adds every value.
func Sum(base int, values ...int) int {
	for _, v := range values {
		base += v
	}
	return base
}
