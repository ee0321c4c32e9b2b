// Package intent flags messages that ask for visual maritime analysis.
package intent

import "strings"

// DefaultKeywords covers detection, vessel and risk vocabulary in Chinese and English.
var DefaultKeywords = []string{
	"检测", "识别", "分析", "海上目标", "船只", "风险", "预警", "安全", "海况",
	"看一下", "图片里", "视频里", "内容是什么",
	"detect", "identify", "analy", "vessel", "ship", "risk", "warning", "safety",
	"sea state", "look at", "in the image", "in the video", "what is in",
}

// Detector matches messages against a keyword list.
type Detector struct {
	keywords []string
}

// NewDetector returns a detector for keywords, or DefaultKeywords when empty.
func NewDetector(keywords ...string) *Detector {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			lowered = append(lowered, k)
		}
	}
	return &Detector{keywords: lowered}
}

// IsVision reports whether message contains any keyword, ignoring case.
func (d *Detector) IsVision(message string) bool {
	message = strings.ToLower(message)
	for _, k := range d.keywords {
		if strings.Contains(message, k) {
			return true
		}
	}
	return false
}
