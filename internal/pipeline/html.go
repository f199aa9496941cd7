package pipeline

import "fmt"

// wrapHTML embeds the generated body in the fixed email document. The title
// carries the subject and the offer id so a received email can be traced back
// to its row.
func wrapHTML(lang, subject, offerID, body string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="%s">
  <head>
    <meta charset="UTF-8" />
    <title>%s - %s</title>
    <style>
      body {
        font-family: Arial, sans-serif;
        font-size: 14px;
        color: #333333;
        line-height: 1.6;
        margin: 20px;
      }
      a {
        color: #0073e6;
        text-decoration: none;
      }
      a:hover {
        text-decoration: underline;
      }
    </style>
  </head>
  <body>
    %s
  </body>
</html>
`, lang, subject, offerID, body)
}
