// Package cookies imports a logged-in publisher session from a browser
// cookie store so a run can skip the login form. Firefox (moz_cookies),
// Chrome (cookies, unencrypted values only) and Netscape text files are
// understood. Imported values are only ever placed in the session jar;
// they are never logged or written back to disk.
package cookies
