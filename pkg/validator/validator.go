package validator

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

func FormatValidationError(err error) string {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		var messages []string
		for _, fieldError := range validationErrors {
			message := getFieldErrorMessage(fieldError)
			messages = append(messages, message)
		}
		return strings.Join(messages, "; ")
	}
	return err.Error()
}

func getFieldErrorMessage(fe validator.FieldError) string {
	field := getFieldName(fe.Field())

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func getFieldName(field string) string {
	fieldNames := map[string]string{
		"Network":          "Network",
		"PostID":           "Post ID",
		"PostType":         "Post type",
		"PostAuthorID":     "Post author ID",
		"Content":          "Content",
		"CommentID":        "Comment ID",
		"CommentAuthorID":  "Comment author ID",
		"ReplyID":          "Reply ID",
		"ReplyAuthorID":    "Reply author ID",
		"ReactionID":       "Reaction ID",
		"ReactionAuthorID": "Reaction author ID",
	}

	if name, ok := fieldNames[field]; ok {
		return name
	}
	return field
}
