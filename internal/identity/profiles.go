package identity

import "net/http"

const (
	acceptDocument = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7"
	acceptFirefox  = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8"
	acceptSafari   = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	acceptLanguage = "zh-CN,zh;q=0.9,en;q=0.8"
	// Only encodings the transport can decode are advertised.
	acceptEncoding = "gzip"
)

func chromeBundle(ua, platform, secCHUA string, mobile bool) http.Header {
	mobileHint := "?0"
	if mobile {
		mobileHint = "?1"
	}
	return http.Header{
		"User-Agent":                {ua},
		"Accept":                    {acceptDocument},
		"Accept-Language":           {acceptLanguage},
		"Accept-Encoding":           {acceptEncoding},
		"Connection":                {"keep-alive"},
		"Upgrade-Insecure-Requests": {"1"},
		"Cache-Control":             {"max-age=0"},
		"Sec-Ch-Ua":                 {secCHUA},
		"Sec-Ch-Ua-Mobile":          {mobileHint},
		"Sec-Ch-Ua-Platform":        {platform},
		"Sec-Fetch-Dest":            {"document"},
		"Sec-Fetch-Mode":            {"navigate"},
		"Sec-Fetch-Site":            {"none"},
		"Sec-Fetch-User":            {"?1"},
	}
}

func firefoxBundle(ua string) http.Header {
	return http.Header{
		"User-Agent":                {ua},
		"Accept":                    {acceptFirefox},
		"Accept-Language":           {acceptLanguage},
		"Accept-Encoding":           {acceptEncoding},
		"Connection":                {"keep-alive"},
		"Upgrade-Insecure-Requests": {"1"},
		"Dnt":                       {"1"},
		"Sec-Fetch-Dest":            {"document"},
		"Sec-Fetch-Mode":            {"navigate"},
		"Sec-Fetch-Site":            {"none"},
		"Sec-Fetch-User":            {"?1"},
	}
}

func safariBundle(ua string) http.Header {
	return http.Header{
		"User-Agent":      {ua},
		"Accept":          {acceptSafari},
		"Accept-Language": {acceptLanguage},
		"Accept-Encoding": {acceptEncoding},
		"Connection":      {"keep-alive"},
		"Sec-Fetch-Dest":  {"document"},
		"Sec-Fetch-Mode":  {"navigate"},
		"Sec-Fetch-Site":  {"none"},
	}
}

const chromeCHUA = `"Not_A Brand";v="8", "Chromium";v="120", "Google Chrome";v="120"`

func desktopPool() []http.Header {
	return []http.Header{
		chromeBundle(
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			`"Windows"`, chromeCHUA, false,
		),
		chromeBundle(
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			`"macOS"`, chromeCHUA, false,
		),
		firefoxBundle("Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0"),
		safariBundle("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15"),
	}
}

func mobilePool() []http.Header {
	return []http.Header{
		safariBundle("Mozilla/5.0 (iPhone; CPU iPhone OS 17_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Mobile/15E148 Safari/604.1"),
		chromeBundle(
			"Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36",
			`"Android"`, chromeCHUA, true,
		),
	}
}
