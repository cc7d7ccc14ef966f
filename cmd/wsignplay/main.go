// The wsignplay command runs a Wrale Signage display player
package main

import "github.com/wrale/wrale-signage-player/internal/wsignplay/cmd"

func main() {
	cmd.Execute()
}
