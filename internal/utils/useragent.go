package utils

import (
	ua "github.com/mssola/user_agent"
)

// ClientInfo is the parsed User-Agent attached to request logs
type ClientInfo struct {
	Browser string `json:"browser"`
	OS      string `json:"os"`
	Mobile  bool   `json:"mobile"`
	IsBot   bool   `json:"is_bot"`
}

// ParseUserAgent extracts browser, OS and bot information
func ParseUserAgent(userAgent string) ClientInfo {
	if userAgent == "" {
		return ClientInfo{Browser: "Unknown", OS: "Unknown"}
	}

	parser := ua.New(userAgent)
	info := ClientInfo{
		Browser: "Unknown",
		OS:      "Unknown",
		Mobile:  parser.Mobile(),
		IsBot:   parser.Bot(),
	}

	if name, version := parser.Browser(); name != "" {
		info.Browser = name
		if version != "" {
			info.Browser += " " + version
		}
	}

	if osInfo := parser.OSInfo(); osInfo.Name != "" {
		info.OS = osInfo.Name
		if osInfo.Version != "" {
			info.OS += " " + osInfo.Version
		}
	}

	return info
}
