package utils

import (
	"net"
	"net/http"
	"time"
)

// AttachmentClient downloads attachments from the Discord CDN. Cached deletes and scheduled
// messages both pull files through it, so connections to the CDN are pooled.
var AttachmentClient = newAttachmentClient(2 * time.Minute)

func newAttachmentClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   15 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   10, // nearly everything comes from cdn.discordapp.com
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}
