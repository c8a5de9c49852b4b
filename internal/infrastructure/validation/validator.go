// Package validation 提供带中文翻译的参数校验
// gin 的 HTTP 绑定和网关的事件负载校验共用同一个 validator 引擎，
// 两条入口的报错字段名和提示文案保持一致
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
)

// Trans 全局翻译器
var Trans ut.Translator

// validate 与 binding.Validator 共享的校验引擎
var validate *validator.Validate

// Init 初始化校验引擎与翻译器
// locale 参数指定需要初始化的语言，例如 "zh" 或 "en"
func Init(locale string) (err error) {

	// 在 Gin v1.9+ 中 binding.Validator 可能为 nil，需要先初始化
	if binding.Validator == nil {
		binding.Validator = &defaultValidator{validator: validator.New()}
	}

	// 修改 gin 框架中的 Validator 引擎属性，实现自定制
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("binding.Validator engine is not *validator.Validate")
	}
	validate = v

	// gin 的共享引擎默认校验 binding 标签，这里的 DTO 统一使用 validate 标签
	v.SetTagName("validate")

	// 注册一个获取 json tag 的自定义方法
	// 报错信息对应前端传参的 json 字段名，而不是 Go 结构体字段名
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	zhT := zh.New() // 中文翻译器
	enT := en.New() // 英文翻译器

	// 第一个参数是备用（fallback）的语言环境，后面的参数是支持的语言环境
	uni := ut.New(enT, zhT, enT)

	Trans, ok = uni.GetTranslator(locale)
	if !ok {
		return fmt.Errorf("uni.GetTranslator(%s) failed", locale)
	}

	switch locale {
	case "en":
		err = en_translations.RegisterDefaultTranslations(v, Trans)
	case "zh":
		err = zh_translations.RegisterDefaultTranslations(v, Trans)
	default:
		err = en_translations.RegisterDefaultTranslations(v, Trans)
	}
	return
}

// ensureInit 懒初始化，测试等未显式 Init 的场景回退到中文
func ensureInit() {
	if validate == nil {
		_ = Init("zh")
	}
}

// Struct 校验结构体的 validate 标签
func Struct(obj any) error {
	ensureInit()
	return validate.Struct(obj)
}

// Translate 把校验错误翻译为 字段名 -> 提示 映射
// 非 validator.ValidationErrors 类型返回 nil
func Translate(err error) map[string]string {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return nil
	}
	return RemoveTopStruct(validationErrs.Translate(Trans))
}

// TranslateBrief 把校验错误压成单行文案，供 WebSocket error 事件使用
// 非校验错误原样返回 err.Error()
func TranslateBrief(err error) string {
	fields := Translate(err)
	if len(fields) == 0 {
		return err.Error()
	}
	messages := make([]string, 0, len(fields))
	for _, message := range fields {
		messages = append(messages, message)
	}
	sort.Strings(messages)
	return strings.Join(messages, "；")
}

// RemoveTopStruct 去除提示信息中的结构体名称前缀
func RemoveTopStruct(fields map[string]string) map[string]string {
	res := make(map[string]string)
	for field, err := range fields {
		res[field[strings.Index(field, ".")+1:]] = err
	}
	return res
}

// defaultValidator 实现 StructValidator 接口
// 用于在 Gin v1.9+ 中初始化 binding.Validator
type defaultValidator struct {
	validator *validator.Validate
}

func (v *defaultValidator) ValidateStruct(obj interface{}) error {
	return v.validator.Struct(obj)
}

func (v *defaultValidator) Engine() interface{} {
	return v.validator
}
