package sample

import (
	"fmt"
	str "strings"
)

// Version is the application version.
const Version = "1.0.0"

const (
	StatusOK    = 200
	statusError = 500
)

var globalVar = "hello"

type Base struct {
	ID int
}

type User struct {
	Base
	Name, nickname string
}

type Handler interface {
	Handle(data string) (int, error)
}

func MyFunc(a int, b string) bool {
	MyFunction("test")
	return a > 0 && b != ""
}

func MyFunction(s string) {
	_ = str.ToUpper(s)
}

func (u *User) MyMethod(msg string) {
	fmt.Println(msg, u.nickname)
	local := Base{ID: 1}
	_ = local
	_ = make([]int, 0)
	_ = globalVar
}
