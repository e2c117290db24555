package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"huanbo/internal/contact/models"
)

func TestDescribeClient(t *testing.T) {
	tests := []struct {
		name string
		ua   string
		want []string
	}{
		{"empty", "", []string{"未知"}},
		{"desktop chrome", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36", []string{"Chrome", "Windows"}},
		{"iphone safari", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1", []string{"Safari", "移动端"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := describeClient(tt.ua)
			for _, w := range tt.want {
				assert.Contains(t, got, w)
			}
		})
	}
}

func TestCompanyTemplateFallbacks(t *testing.T) {
	sub := models.Submission{
		ID:          "1",
		Timestamp:   time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Name:        "王五",
		Contact:     "wangwu@example.com",
		ServiceType: "清关",
		Message:     "进口清关咨询，需要代理报关。",
	}
	html, err := render(companyTemplate, newTemplateData(sub, time.UTC))
	require.NoError(t, err)
	assert.Contains(t, html, "<strong>服务类型:</strong> 清关")
	assert.Contains(t, html, "<strong>公司名称:</strong> 未填写")
	assert.Contains(t, html, "2025/1/2 03:04:05")
}

func TestCircuitBreakerCooldown(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(2, time.Minute)
	cb.now = func() time.Time { return now }

	assert.True(t, cb.Allow())
	cb.RecordFailure()
	assert.True(t, cb.Allow())
	cb.RecordFailure()
	assert.False(t, cb.Allow(), "open after threshold")

	now = now.Add(2 * time.Minute)
	assert.True(t, cb.Allow(), "trial send allowed after cooldown")
	cb.RecordFailure()
	assert.True(t, cb.IsOpen(), "a failed trial reopens")

	now = now.Add(2 * time.Minute)
	assert.True(t, cb.Allow())
	cb.RecordSuccess()
	assert.False(t, cb.IsOpen())
}
