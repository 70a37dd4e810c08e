package capability

import "runtime"

// InstallGuidance returns installation instructions for the external video
// tool on the current platform. Hosts surface this text verbatim when
// reporting an Unavailable status.
func InstallGuidance() string {
	return installGuidanceFor(runtime.GOOS)
}

func installGuidanceFor(goos string) string {
	switch goos {
	case "darwin":
		return "ffmpeg is not installed. Install it with Homebrew: brew install ffmpeg"
	case "windows":
		return "ffmpeg is not installed. Install it with winget (winget install ffmpeg) " +
			"or download a build from https://ffmpeg.org/download.html and add its bin directory to PATH"
	case "linux":
		return "ffmpeg is not installed. Install it with your package manager, " +
			"e.g. apt install ffmpeg (Debian/Ubuntu) or dnf install ffmpeg (Fedora)"
	default:
		return "ffmpeg is not installed. Download it from https://ffmpeg.org/download.html " +
			"and make sure the binary is on PATH"
	}
}
