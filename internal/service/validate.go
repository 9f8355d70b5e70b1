package service

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

const (
	ContentMinLen = 5
	ContentMaxLen = 300
)

var (
	validate    = validator.New()
	contentRule = fmt.Sprintf("min=%d,max=%d", ContentMinLen, ContentMaxLen)
)

// validateContent 内容长度按字符计
func validateContent(content string) error {
	err := validate.Var(content, contentRule)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Tag() == "max" {
		return fieldError("content", "Content is too long")
	}
	return fieldError("content", "Content is too short")
}

// parseVote 只接受 "1" 与 "-1"
func parseVote(vote string) (int8, error) {
	if err := validate.Var(vote, "required,oneof=1 -1"); err != nil {
		return 0, fieldError("vote", "Vote must be 1 or -1")
	}
	if vote == "-1" {
		return -1, nil
	}
	return 1, nil
}
