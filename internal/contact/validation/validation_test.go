package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"huanbo/internal/contact/models"
)

func validForm() models.ContactForm {
	return models.ContactForm{
		Name:        "张三",
		Contact:     "zhangsan@example.com",
		Company:     "上海贸易有限公司",
		ServiceType: "海运",
		CargoType:   "电子产品",
		Destination: "汉堡",
		Message:     "需要从上海发一个40尺整柜到汉堡，请报价。",
	}
}

func TestValidateAcceptsValidInputAndTrims(t *testing.T) {
	in := validForm()
	in.Name = "  张三 "
	in.Message = "\n" + in.Message + "  "

	out, errs := Validate(in)
	require.Empty(t, errs)
	assert.Equal(t, "张三", out.Name)
	assert.Equal(t, validForm().Message, out.Message)
}

func TestValidateOptionalFieldsMayBeEmpty(t *testing.T) {
	in := validForm()
	in.Company, in.ServiceType, in.CargoType, in.Destination = "", "  ", "", ""

	out, errs := Validate(in)
	require.Empty(t, errs)
	assert.Empty(t, out.ServiceType)
}

func TestValidateSingleViolationNamesField(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(f *models.ContactForm)
		field   string
		message string
	}{
		{"short name", func(f *models.ContactForm) { f.Name = "张" }, "name", "姓名必须在2-50个字符之间"},
		{"long name", func(f *models.ContactForm) { f.Name = strings.Repeat("张", 51) }, "name", "姓名必须在2-50个字符之间"},
		{"name with digits", func(f *models.ContactForm) { f.Name = "Bob123" }, "name", "姓名只能包含中文、英文和空格"},
		{"bad contact", func(f *models.ContactForm) { f.Contact = "12345" }, "contact", "请输入有效的邮箱地址或手机号码"},
		{"phone with wrong prefix", func(f *models.ContactForm) { f.Contact = "23912345678" }, "contact", "请输入有效的邮箱地址或手机号码"},
		{"long company", func(f *models.ContactForm) { f.Company = strings.Repeat("公", 101) }, "company", "公司名称不能超过100个字符"},
		{"unknown service", func(f *models.ContactForm) { f.ServiceType = "快递" }, "service-type", "请选择有效的服务类型"},
		{"long cargo", func(f *models.ContactForm) { f.CargoType = strings.Repeat("a", 101) }, "cargo-type", "货物类型不能超过100个字符"},
		{"long destination", func(f *models.ContactForm) { f.Destination = strings.Repeat("港", 101) }, "destination", "目的地不能超过100个字符"},
		{"short message", func(f *models.ContactForm) { f.Message = strings.Repeat("字", 9) }, "message", "需求描述必须在10-2000个字符之间"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validForm()
			tt.mutate(&in)
			_, errs := Validate(in)
			require.Len(t, errs, 1)
			assert.Equal(t, tt.field, errs[0].Field)
			assert.Equal(t, tt.message, errs[0].Message)
		})
	}
}

func TestValidateContactSamples(t *testing.T) {
	for _, c := range []string{"a@b.com", "13912345678"} {
		in := validForm()
		in.Contact = c
		_, errs := Validate(in)
		assert.Empty(t, errs, c)
	}
}

func TestValidateNameSpacing(t *testing.T) {
	for _, name := range []string{"张　三", "Zhang San", "张\u00a0三", "Li\tSi"} {
		in := validForm()
		in.Name = name
		_, errs := Validate(in)
		assert.Empty(t, errs, "%q", name)
	}

	in := validForm()
	in.Contact = "zhang\u3000san@example.com"
	_, errs := Validate(in)
	require.Len(t, errs, 1)
	assert.Equal(t, "contact", errs[0].Field)
}

func TestValidateMessageBoundaries(t *testing.T) {
	tests := []struct {
		length int
		ok     bool
	}{
		{9, false},
		{10, true},
		{2000, true},
		{2001, false},
	}
	for _, tt := range tests {
		in := validForm()
		in.Message = strings.Repeat("货", tt.length)
		_, errs := Validate(in)
		if tt.ok {
			assert.Empty(t, errs, "length %d", tt.length)
			continue
		}
		_, found := errs.Field("message")
		assert.True(t, found, "length %d", tt.length)
	}
}

func TestValidateReportsAllViolationsInFieldOrder(t *testing.T) {
	_, errs := Validate(models.ContactForm{
		Name:        "X",
		Contact:     "nope",
		ServiceType: "快递",
		Message:     "短",
	})
	require.Len(t, errs, 4)
	fields := make([]string, 0, len(errs))
	for _, e := range errs {
		fields = append(fields, e.Field)
	}
	assert.Equal(t, []string{"name", "contact", "service-type", "message"}, fields)
	assert.Contains(t, errs.Error(), "contact: 请输入有效的邮箱地址或手机号码")
}

func TestValidateIsDeterministic(t *testing.T) {
	in := models.ContactForm{Name: "Bob123", Contact: "x"}
	_, first := Validate(in)
	_, second := Validate(in)
	assert.Equal(t, first, second)
}
