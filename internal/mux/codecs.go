package mux

import "strings"

// canonicalCodec maps RFC 6381 codec families and ffprobe names onto the
// names ffprobe reports, so inputs and outputs compare directly.
func canonicalCodec(codec string) string {
	codec = strings.ToLower(strings.TrimSpace(codec))
	family, _, _ := strings.Cut(codec, ".")
	switch family {
	case "":
		return ""
	case "avc1", "avc3", "h264", "avc":
		return "h264"
	case "hev1", "hvc1", "hevc", "h265":
		return "hevc"
	case "vp09", "vp9":
		return "vp9"
	case "vp08", "vp8":
		return "vp8"
	case "av01", "av1":
		return "av1"
	case "mp4a", "aac":
		return "aac"
	case "mp3":
		return "mp3"
	case "ac-3", "ac3":
		return "ac3"
	case "ec-3", "eac3":
		return "eac3"
	case "opus":
		return "opus"
	case "vorbis":
		return "vorbis"
	case "flac", "fla":
		return "flac"
	case "alac":
		return "alac"
	}
	return family
}

type containerRules struct {
	format string
	video  map[string]bool
	audio  map[string]bool
}

func set(values ...string) map[string]bool {
	out := make(map[string]bool, len(values))
	for _, v := range values {
		out[v] = true
	}
	return out
}

// containers lists what each output container accepts without transcoding.
// A nil codec set accepts anything.
var containers = map[string]containerRules{
	"mp4": {
		format: "mp4",
		video:  set("h264", "hevc", "av1", "vp9"),
		audio:  set("aac", "mp3", "opus", "ac3", "eac3", "flac", "alac"),
	},
	"mov": {
		format: "mov",
		video:  set("h264", "hevc"),
		audio:  set("aac", "mp3", "ac3", "alac"),
	},
	"webm": {
		format: "webm",
		video:  set("vp8", "vp9", "av1"),
		audio:  set("opus", "vorbis"),
	},
	"mkv": {
		format: "matroska",
	},
}

// SupportedContainer reports whether container can be produced.
func SupportedContainer(container string) bool {
	_, ok := containers[strings.ToLower(strings.TrimSpace(container))]
	return ok
}

// Compatible reports whether the video and audio codecs can be stream-copied
// into container. Unknown codecs are accepted and left for ffmpeg to judge.
// The returned string names the offending codec when the answer is false.
func Compatible(container, videoCodec, audioCodec string) (bool, string) {
	rules, ok := containers[strings.ToLower(strings.TrimSpace(container))]
	if !ok {
		return false, "container " + container
	}
	if v := canonicalCodec(videoCodec); v != "" && rules.video != nil && !rules.video[v] {
		return false, "video codec " + v
	}
	if a := canonicalCodec(audioCodec); a != "" && rules.audio != nil && !rules.audio[a] {
		return false, "audio codec " + a
	}
	return true, ""
}

// refusalMarkers are ffmpeg stderr fragments that mean the container refused
// a codec rather than the tool failing for some other reason.
var refusalMarkers = []string{
	"could not find tag for codec",
	"codec not currently supported in container",
	"not supported in container",
	"incompatible with output codec",
	"only vp8 or vp9 or av1 video and vorbis or opus audio",
}

func isCodecRefusal(stderr string) bool {
	lower := strings.ToLower(stderr)
	for _, marker := range refusalMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// tail keeps the last few non-empty lines of tool output.
func tail(output string, lines int) string {
	parts := strings.Split(strings.TrimSpace(output), "\n")
	kept := make([]string, 0, lines)
	for i := len(parts) - 1; i >= 0 && len(kept) < lines; i-- {
		if line := strings.TrimSpace(parts[i]); line != "" {
			kept = append(kept, line)
		}
	}
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}
	return strings.Join(kept, " | ")
}
