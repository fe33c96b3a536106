// phantomd drives the motion phantom.
package main

func main() {
	Execute()
}
