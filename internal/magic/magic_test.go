/*
 * garlic - a Java/Dalvik bytecode decompiler
 */

package magic

import "testing"

func TestIdentifyIsTotalAndExclusive(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		path string
		want Kind
	}{
		{"class", []byte{0xCA, 0xFE, 0xBA, 0xBE, 0, 0, 0, 52}, "Foo.class", JavaClass},
		{"dex", []byte{0x64, 0x65, 0x78, 0x0A, '0', '3', '5', 0}, "classes.dex", DEX},
		{"apk by suffix", []byte{0x50, 0x4B, 0x03, 0x04}, "app.apk", APK},
		{"apk suffix case insensitive", []byte{0x50, 0x4B, 0x03, 0x04}, "app.APK", APK},
		{"jar by default", []byte{0x50, 0x4B, 0x03, 0x04}, "lib.jar", JAR},
		{"zip with unrelated suffix is a jar", []byte{0x50, 0x4B, 0x03, 0x04}, "bundle.zip", JAR},
		{"unknown", []byte{0, 1, 2, 3}, "mystery.bin", Unknown},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Identify(ReadPrefix(c.data), c.path)
			if got != c.want {
				t.Errorf("Identify(%q) = %v, want %v", c.path, got, c.want)
			}
		})
	}
}
