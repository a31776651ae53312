// Command weather-mood runs the weather mood recommendation service.
package main

import "github.com/justestif/go-weather-mood/internal/cmd"

func main() {
	cmd.Execute()
}
