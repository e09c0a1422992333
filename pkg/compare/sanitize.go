package compare

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	htmlServerError    = "서버 오류가 발생했습니다. 잠시 후 다시 시도해주세요."
	genericServerError = "서버 오류가 발생했습니다."
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// sanitizeMessage strips proxy HTML error pages and stray tags from text
// that ends up in the conversation log.
func sanitizeMessage(message string) string {
	lower := strings.ToLower(message)
	if strings.Contains(lower, "<html") || strings.Contains(lower, "<!doctype") || strings.Contains(lower, "<body") {
		return htmlServerError
	}
	stripped := strings.TrimSpace(tagPattern.ReplaceAllString(message, ""))
	if stripped == "" {
		return genericServerError
	}
	return stripped
}

func timeoutMessage(timeout time.Duration) string {
	return fmt.Sprintf("요청 시간이 초과되었습니다 (%d초)", int(timeout.Round(time.Second)/time.Second))
}
