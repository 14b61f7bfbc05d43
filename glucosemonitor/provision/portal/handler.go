package portal

import (
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harveysanders/glucopanel/xslog"
)

const pageName = "page"

const pageHTML = `<!doctype html>
<html><head><meta name="viewport" content="width=device-width,initial-scale=1"><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
{{if .Message}}<p>{{.Message}}</p>{{end}}
{{if .Form}}<form method="post" action="/connect">
<label>Network <input name="ssid" autofocus></label><br>
<label>Password <input name="password" type="password"></label><br>
<button type="submit">Connect</button>
</form>{{end}}
</body></html>
`

type page struct {
	Title   string
	Message string
	Form    bool
}

// Handler serves the configuration form and the captive-portal detection URLs.
func (p *Portal) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	r.SetHTMLTemplate(template.Must(template.New(pageName).Parse(pageHTML)))

	r.GET("/", p.handleForm)
	r.POST("/connect", p.handleConnect)
	// OS captive-portal detection.
	r.GET("/generate_204", redirectHome)
	r.GET("/hotspot-detect.html", redirectHome)
	return r
}

func redirectHome(c *gin.Context) {
	c.Redirect(http.StatusFound, "/")
}

func (p *Portal) handleForm(c *gin.Context) {
	c.HTML(http.StatusOK, pageName, page{Title: "Connect to WiFi", Form: true})
}

func (p *Portal) handleConnect(c *gin.Context) {
	creds := Credentials{
		SSID:     c.PostForm("ssid"),
		Password: c.PostForm("password"),
	}
	if creds.SSID == "" {
		c.HTML(http.StatusBadRequest, pageName, page{Title: "Connect to WiFi", Message: "Network name is required.", Form: true})
		return
	}
	if err := p.submit(c.Request.Context(), creds); err != nil {
		p.logger.Warn("portal:join-failed", xslog.Error(err))
		c.HTML(http.StatusBadGateway, pageName, page{Title: "Connect to WiFi", Message: "Could not join " + creds.SSID + ".", Form: true})
		return
	}
	c.HTML(http.StatusOK, pageName, page{Title: "Connected", Message: "Joined " + creds.SSID + "."})
}
