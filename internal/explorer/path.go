package explorer

import "strings"

// RootPath is the path rendered when a workspace opens.
const RootPath = "/"

// IsRoot reports whether path names the workspace root. Both "/" and the
// empty string do.
func IsRoot(path string) bool {
	return path == RootPath || path == ""
}

// ParentPath drops the last slash-separated segment of path. An empty result
// becomes RootPath, so the parent of "/a" is "/".
func ParentPath(path string) string {
	segments := strings.Split(path, "/")
	parent := strings.Join(segments[:len(segments)-1], "/")
	if parent == "" {
		return RootPath
	}
	return parent
}

// JoinPath appends name to dir without doubling a trailing slash.
func JoinPath(dir, name string) string {
	if strings.HasSuffix(dir, "/") {
		return dir + name
	}
	return dir + "/" + name
}
