package utils

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

var audioExt = map[string]bool{".wav": true, ".mp3": true, ".mp4": true, ".m4a": true,
	".ogg": true, ".webm": true, ".aac": true}

//SupportAudioExt checks if audio ext is supported
func SupportAudioExt(ext string) bool {
	return audioExt[strings.ToLower(ext)]
}

// MakeValidateFileName drops any directories of fileName, replaces spaces,
// lowercases extension and prefixes the result with ID
func MakeValidateFileName(ID, fileName string) (string, error) {
	base := filepath.Base(strings.ReplaceAll(fileName, "\\", "/"))
	ext := filepath.Ext(base)
	name := strings.TrimSpace(strings.TrimSuffix(base, ext))
	if name == "" || name == "." || name == ".." || name == "/" {
		return "", fmt.Errorf("wrong file name '%s'", fileName)
	}
	res := strings.ReplaceAll(name, " ", "_") + strings.ToLower(ext)
	if ID == "" {
		return res, nil
	}
	return path.Join(ID, res), nil
}
