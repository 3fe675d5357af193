package main

// @title SSEC Chat APIs
// @version 1.0
// @description AI chat assistant streaming replies from a hosted model.

// @contact.name API Support

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /
// @schemes http
import (
	_ "ssec-chat/docs"
	protocol "ssec-chat/protocal"

	"github.com/sirupsen/logrus"
)

func main() {
	err := protocol.ServeHTTP()
	if err != nil {
		logrus.Println(err)
	}
}
