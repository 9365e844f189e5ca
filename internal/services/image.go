package services

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// AllowedUploadExtensions 允许上传的图片扩展名
var AllowedUploadExtensions = []string{".jpg", ".png", ".gif", ".jpeg"}

// ImageUpload 随推文上传的图片
type ImageUpload struct {
	Filename string
	Data     []byte
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SanitizeFilename 去掉路径和不安全字符，结果可能为空
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	name = strings.Trim(name, "._")
	return name
}

func isAllowedExtension(ext string) bool {
	ext = strings.ToLower(ext)
	for _, allowed := range AllowedUploadExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// prepareImage 返回清洗后的文件名和内容类型；
// 未提供图片时 ok 为 false，图片无效时返回校验错误
func prepareImage(upload *ImageUpload) (filename, contentType string, ok bool, err error) {
	if upload == nil {
		return "", "", false, nil
	}

	filename = SanitizeFilename(upload.Filename)
	if filename == "" {
		return "", "", false, nil
	}

	if !isAllowedExtension(filepath.Ext(filename)) {
		return "", "", false, invalidImageError()
	}

	// 按内容识别的真实格式也必须在允许列表中
	detected := mimetype.Detect(upload.Data)
	if !isAllowedExtension(detected.Extension()) {
		return "", "", false, invalidImageError()
	}

	return filename, detected.String(), true, nil
}
