/*
Package launcher starts the resume parser server with its bind configuration.

The project has three main source packages:
`cmd`: The parserlauncher command line application.
`internal`: Configuration, child environment, launcher, journal and snapshot code.
`pkg`: Library code that's ok to use by external applications

The parser server itself lives in the `application` folder next to the
launcher executable and is not part of this module.
*/
package launcher
