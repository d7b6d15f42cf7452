// version.go - Versionsinformation fuer nnscope
// Die Variable wird beim Release-Build via ldflags ueberschrieben.
package version

var Version = "0.0.0"
