package auth

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/newsdeck/internal/model"
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

// Validator はフォーム入力をサーバーへ送る前に検証する。
type Validator struct {
	validate *validator.Validate
}

// NewValidator はValidatorを生成する。
// エラーのフィールド名にはJSONのキー名を使う。
func NewValidator() *Validator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})

	return &Validator{validate: v}
}

// Struct は構造体を検証し、違反があれば*model.ValidationErrorを返す。
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate input: %w", err)
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = message(fe)
	}
	return &model.ValidationError{Fields: fields}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "必須項目です"
	case "email":
		return "メールアドレスの形式が正しくありません"
	case "min":
		return fmt.Sprintf("%s文字以上で入力してください", fe.Param())
	case "max":
		return fmt.Sprintf("%s文字以内で入力してください", fe.Param())
	case "eqfield":
		return "パスワードが一致しません"
	case "oneof":
		return fmt.Sprintf("次のいずれかを指定してください: %s", fe.Param())
	case "username":
		return "英数字と . @ + - _ のみ使用できます"
	default:
		return "入力値が正しくありません"
	}
}
